// Package mirror persists the client's working set between sessions.
//
// Every backend stores the same bytes: one JSON array of Record under the
// fixed key "words". A snapshot that cannot be parsed is treated as absent.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/logutil"
	"github.com/kuitang/wordfeed/internal/obs"
)

// Key is the slot name every backend stores the snapshot under.
const Key = "words"

// ErrNoSnapshot is returned by a Blob when nothing has been saved yet.
var ErrNoSnapshot = errors.New("mirror: no snapshot")

// Record is one word as the client sees it, with its display colour.
type Record struct {
	ID    int    `json:"id"`
	Word  string `json:"word"`
	Color string `json:"color"`
	// Local marks a word created on this client that no fetched page has
	// returned yet. Such words sit at the end of the server's list.
	Local bool `json:"local,omitempty"`
}

// Mirror loads and saves the last full working set.
type Mirror interface {
	// Load returns the saved records, or an empty slice when there is no
	// usable snapshot. Only backend I/O failures are errors.
	Load(ctx context.Context) ([]Record, error)
	// Save atomically replaces the snapshot.
	Save(ctx context.Context, records []Record) error
	Close() error
}

// Blob is a single-slot byte store. Get returns ErrNoSnapshot when empty.
type Blob interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Close() error
	String() string
}

// Store adapts a Blob to Mirror with the shared JSON layout.
type Store struct {
	blob Blob
}

// New wraps blob as a Mirror.
func New(blob Blob) *Store {
	return &Store{blob: blob}
}

// Load implements Mirror.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	data, err := s.blob.Get(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Persistence, "read mirror "+s.blob.String(), err)
	}

	records, err := Decode(data)
	if err != nil {
		obs.From(ctx).With("pkg", "mirror").Warn("mirror_unparseable",
			"backend", s.blob.String(), "error", err.Error(),
			"body", logutil.FormatBodyForLog(data, 256))
		return []Record{}, nil
	}
	return records, nil
}

// Save implements Mirror.
func (s *Store) Save(ctx context.Context, records []Record) error {
	data, err := Encode(records)
	if err != nil {
		return errs.Wrap(errs.Persistence, "encode mirror", err)
	}
	if err := s.blob.Put(ctx, data); err != nil {
		return errs.Wrap(errs.Persistence, "write mirror "+s.blob.String(), err)
	}
	return nil
}

// Close implements Mirror.
func (s *Store) Close() error {
	return s.blob.Close()
}

func (s *Store) String() string {
	return s.blob.String()
}

// Encode serializes records as a JSON array. A nil slice encodes as [].
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// Decode parses a snapshot and rejects one that breaks the working set
// rules: ids must be positive and unique and words non-empty.
func Decode(data []byte) ([]Record, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return []Record{}, nil
	}

	seen := make(map[int]struct{}, len(records))
	for i, r := range records {
		if r.ID < 1 {
			return nil, fmt.Errorf("record %d has non-positive id %d", i, r.ID)
		}
		if strings.TrimSpace(r.Word) == "" {
			return nil, fmt.Errorf("record %d (id %d) has an empty word", i, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate id %d", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return records, nil
}

// MemoryBlob keeps the snapshot in memory.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
	set  bool

	// GetErr and PutErr inject backend failures.
	GetErr error
	PutErr error
}

// NewMemory returns a Mirror held in process memory.
func NewMemory() *Store {
	return New(&MemoryBlob{})
}

func (m *MemoryBlob) Get(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if !m.set {
		return nil, ErrNoSnapshot
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryBlob) Put(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.data = append([]byte(nil), data...)
	m.set = true
	return nil
}

// SetRaw stores data verbatim, bypassing encoding.
func (m *MemoryBlob) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.set = true
}

// SetErrors sets the injected failures under the blob's lock.
func (m *MemoryBlob) SetErrors(get, put error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetErr, m.PutErr = get, put
}

func (m *MemoryBlob) Close() error   { return nil }
func (m *MemoryBlob) String() string { return "memory" }
