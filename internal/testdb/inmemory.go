// Package testdb opens throwaway SQLCipher databases for tests.
package testdb

import (
	"fmt"
	"sync/atomic"

	"github.com/kuitang/wordfeed/internal/db"
)

// Fataler is satisfied by *testing.T, *testing.B and *rapid.T.
type Fataler interface {
	Fatalf(format string, args ...any)
}

var counter atomic.Int64

// NewInMemory opens a fresh, uniquely named in-memory database with the
// given schemas applied. Each call sees an empty database.
func NewInMemory(t Fataler, prefix string, schemas ...string) *db.DB {
	name := fmt.Sprintf("%s-%d", prefix, counter.Add(1))
	d, err := db.OpenInMemory(name, nil, schemas...)
	if err != nil {
		t.Fatalf("failed to open in-memory database %s: %v", name, err)
	}
	return d
}
