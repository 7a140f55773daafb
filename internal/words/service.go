// Package words implements the server-side word collection behind the /words API.
package words

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/obs"
)

// Service validates requests and delegates to a Store.
type Service struct {
	store  Store
	policy *bluemonday.Policy
}

// NewService creates a word service over store.
func NewService(store Store) *Service {
	return &Service{store: store, policy: bluemonday.StrictPolicy()}
}

// Sanitize trims a word and strips any markup from it.
func (s *Service) Sanitize(word string) string {
	stripped := s.policy.Sanitize(strings.TrimSpace(word))
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// List returns one page of words. page < 1 reads page 1; pageSize < 1 uses
// DefaultPageSize and anything above MaxPageSize is clamped.
func (s *Service) List(ctx context.Context, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)

	data, total, err := s.store.Slice(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	return &Page{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Data:       data,
	}, nil
}

// Create appends a new word and returns it with its allocated id.
func (s *Service) Create(ctx context.Context, word string) (*Word, error) {
	clean := s.Sanitize(word)
	if clean == "" {
		return nil, errs.New(errs.InvalidArgument, "Word is required")
	}
	created, err := s.store.Create(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("failed to create word: %w", err)
	}
	obs.From(ctx).With("pkg", "words").Info("word_created", "id", created.ID)
	return &created, nil
}

// Update replaces the text of word id.
func (s *Service) Update(ctx context.Context, id int, word string) (*Word, error) {
	clean := s.Sanitize(word)
	if clean == "" {
		return nil, errs.New(errs.InvalidArgument, "Word is required")
	}
	updated, err := s.store.Update(ctx, id, clean)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes word id and returns the removed record.
func (s *Service) Delete(ctx context.Context, id int) (*DeleteResult, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	obs.From(ctx).With("pkg", "words").Info("word_deleted", "id", deleted.ID)
	return &DeleteResult{Message: "Word deleted", DeletedWord: deleted}, nil
}

// Seed creates one word per non-blank line of r and returns how many were added.
func (s *Service) Seed(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	added := 0
	for scanner.Scan() {
		clean := s.Sanitize(scanner.Text())
		if clean == "" {
			continue
		}
		if _, err := s.store.Create(ctx, clean); err != nil {
			return added, fmt.Errorf("failed to seed word %d: %w", added+1, err)
		}
		added++
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("failed to read seed: %w", err)
	}
	return added, nil
}
