// Package db opens SQLCipher databases for the word store and the local mirror.
package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// KeySize is the SQLCipher key length in bytes (256 bits).
	KeySize = 32

	// MaxOpenConns is the maximum number of open connections per database.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 4

	// MaxIdleConns is the maximum number of idle connections per database.
	MaxIdleConns = 2
)

// DB wraps a sql.DB opened through the project driver.
type DB struct {
	db   *sql.DB
	path string
}

// NewFromSQL wraps an existing sql.DB.
func NewFromSQL(path string, sqlDB *sql.DB) *DB {
	return &DB{db: sqlDB, path: path}
}

// Open opens (creating if needed) the database file at path.
// A nil key opens it unencrypted; otherwise key must be KeySize bytes.
// Each schema is applied in order after the connection is verified.
func Open(path string, key []byte, schemas ...string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn, err := buildDSN(path, key)
	if err != nil {
		return nil, err
	}
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())
	return open(path, dsn, schemas)
}

// OpenInMemory opens a named shared-cache in-memory database, mainly for tests.
// Connections opened with the same name see the same data.
func OpenInMemory(name string, key []byte, schemas ...string) (*DB, error) {
	if name == "" {
		name = "wordfeed"
	}
	dsn, err := buildDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), key)
	if err != nil {
		return nil, err
	}
	return open(":memory:", dsn, schemas)
}

func open(path, dsn string, schemas []string) (*DB, error) {
	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	// A wrong SQLCipher key only surfaces on the first real read.
	var tables int
	if err := sqlDB.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&tables); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify database %s: %w", path, err)
	}

	d := NewFromSQL(path, sqlDB)
	for _, schema := range schemas {
		if err := d.ApplySchema(context.Background(), schema); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	return d, nil
}

// ApplySchema executes idempotent DDL.
func (d *DB) ApplySchema(ctx context.Context, schema string) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema for %s: %w", d.path, err)
	}
	return nil
}

// SQL returns the underlying sql.DB for direct access.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Path returns the file path, or ":memory:" for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// Close closes the connection pool.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func buildDSN(base string, key []byte) (string, error) {
	if key == nil {
		return base, nil
	}
	if len(key) != KeySize {
		return "", fmt.Errorf("database key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
	params := fmt.Sprintf("_pragma_key=x'%s'&_pragma_cipher_page_size=4096", hex.EncodeToString(key))
	return appendSQLiteParams(base, params), nil
}

func sqliteCommonParams() string {
	// WAL + NORMAL provides good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
