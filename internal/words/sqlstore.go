package words

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kuitang/wordfeed/internal/db"
	"github.com/kuitang/wordfeed/internal/errs"
)

// SQLStore keeps words in a SQLCipher table ordered by id.
// New ids only ever grow, so id order matches insertion order.
type SQLStore struct {
	db *db.DB
}

// NewSQLStore wraps an open database; the words schema must already be applied.
func NewSQLStore(d *db.DB) *SQLStore {
	return &SQLStore{db: d}
}

// OpenSQLStore opens the database at path and applies the words schema.
func OpenSQLStore(path string, key []byte) (*SQLStore, error) {
	d, err := db.Open(path, key, db.WordsSchema)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(d), nil
}

func (s *SQLStore) Slice(ctx context.Context, offset, limit int) ([]Word, int, error) {
	var total int
	if err := s.db.SQL().QueryRowContext(ctx, `SELECT count(*) FROM words`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count words: %w", err)
	}
	if offset < 0 || limit <= 0 {
		return []Word{}, total, nil
	}

	rows, err := s.db.SQL().QueryContext(ctx,
		`SELECT id, word FROM words ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list words: %w", err)
	}
	defer rows.Close()

	out := make([]Word, 0, limit)
	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.ID, &w.Word); err != nil {
			return nil, 0, fmt.Errorf("failed to scan word: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list words: %w", err)
	}
	return out, total, nil
}

func (s *SQLStore) Create(ctx context.Context, word string) (Word, error) {
	now := time.Now().UTC().Unix()
	res, err := s.db.SQL().ExecContext(ctx,
		`INSERT INTO words (word, created_at, updated_at) VALUES (?, ?, ?)`, word, now, now)
	if err != nil {
		return Word{}, fmt.Errorf("failed to create word: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Word{}, fmt.Errorf("failed to read new word id: %w", err)
	}
	return Word{ID: int(id), Word: word}, nil
}

func (s *SQLStore) Update(ctx context.Context, id int, word string) (Word, error) {
	res, err := s.db.SQL().ExecContext(ctx,
		`UPDATE words SET word = ?, updated_at = ? WHERE id = ?`, word, time.Now().UTC().Unix(), id)
	if err != nil {
		return Word{}, fmt.Errorf("failed to update word: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Word{}, fmt.Errorf("failed to update word: %w", err)
	} else if n == 0 {
		return Word{}, errs.New(errs.NotFound, "Word not found")
	}
	return Word{ID: id, Word: word}, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int) (Word, error) {
	tx, err := s.db.SQL().BeginTx(ctx, nil)
	if err != nil {
		return Word{}, fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	var w Word
	err = tx.QueryRowContext(ctx, `SELECT id, word FROM words WHERE id = ?`, id).Scan(&w.ID, &w.Word)
	if errors.Is(err, sql.ErrNoRows) {
		return Word{}, errs.New(errs.NotFound, "Word not found")
	}
	if err != nil {
		return Word{}, fmt.Errorf("failed to read word: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM words WHERE id = ?`, id); err != nil {
		return Word{}, fmt.Errorf("failed to delete word: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Word{}, fmt.Errorf("failed to commit delete: %w", err)
	}
	return w, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
