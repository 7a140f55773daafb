package words

import (
	"context"
	"fmt"
	"sync"

	"github.com/kuitang/wordfeed/internal/errs"
)

// MemoryStore keeps words in a slice and finds them by linear scan.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []Word
	lastID int
}

// NewMemoryStore returns a store seeded with the given words, ids 1..n.
func NewMemoryStore(seed ...string) *MemoryStore {
	s := &MemoryStore{items: make([]Word, 0, len(seed))}
	for _, w := range seed {
		s.lastID++
		s.items = append(s.items, Word{ID: s.lastID, Word: w})
	}
	return s
}

func (s *MemoryStore) Slice(_ context.Context, offset, limit int) ([]Word, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.items)
	if offset < 0 || offset >= total || limit <= 0 {
		return []Word{}, total, nil
	}
	end := min(offset+limit, total)
	out := make([]Word, end-offset)
	copy(out, s.items[offset:end])
	return out, total, nil
}

func (s *MemoryStore) Create(_ context.Context, word string) (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.items {
		s.lastID = max(s.lastID, w.ID)
	}
	s.lastID++
	created := Word{ID: s.lastID, Word: word}
	s.items = append(s.items, created)
	return created, nil
}

func (s *MemoryStore) Update(_ context.Context, id int, word string) (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Word{}, errs.New(errs.NotFound, "Word not found")
	}
	s.items[i].Word = word
	return s.items[i], nil
}

func (s *MemoryStore) Delete(_ context.Context, id int) (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Word{}, errs.New(errs.NotFound, "Word not found")
	}
	deleted := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	return deleted, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) indexOf(id int) int {
	for i, w := range s.items {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("memory(%d words, last id %d)", len(s.items), s.lastID)
}
