package mirror

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kuitang/wordfeed/internal/db"
)

// SQLiteBlob stores the snapshot as one row of the mirror table.
type SQLiteBlob struct {
	db *db.DB
}

// NewSQLite opens (or creates) a SQLCipher mirror database at path.
// key is nil for an unencrypted file or db.KeySize bytes.
func NewSQLite(path string, key []byte) (*Store, error) {
	d, err := db.Open(path, key, db.MirrorSchema)
	if err != nil {
		return nil, err
	}
	return New(&SQLiteBlob{db: d}), nil
}

// NewSQLiteFromDB uses an already open database, applying the mirror schema.
func NewSQLiteFromDB(ctx context.Context, d *db.DB) (*Store, error) {
	if err := d.ApplySchema(ctx, db.MirrorSchema); err != nil {
		return nil, err
	}
	return New(&SQLiteBlob{db: d}), nil
}

func (s *SQLiteBlob) Get(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.SQL().QueryRowContext(ctx, `SELECT value FROM mirror WHERE key = ?`, Key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	return data, err
}

func (s *SQLiteBlob) Put(ctx context.Context, data []byte) error {
	_, err := s.db.SQL().ExecContext(ctx,
		`INSERT INTO mirror (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		Key, data, time.Now().Unix())
	return err
}

func (s *SQLiteBlob) Close() error   { return s.db.Close() }
func (s *SQLiteBlob) String() string { return "sqlite:" + s.db.Path() }
