package remote

import (
	"context"
	"sync"

	"github.com/kuitang/wordfeed/internal/words"
)

// Call records one request made against a Fake.
type Call struct {
	Op   string // fetch, create, update, delete
	ID   int
	Page int
	Text string
}

// Fake is an in-process Client backed by the real word service over a
// memory store. Tests inject failures per operation and can hold FetchPage
// open with Gate.
type Fake struct {
	svc *words.Service

	mu    sync.Mutex
	calls []Call

	// Error injection; checked before the service is touched.
	FetchErr  error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// Gate, when non-nil, blocks FetchPage until it is closed or receives.
	Gate chan struct{}
	// Entered, when non-nil, receives once per FetchPage before Gate is awaited.
	Entered chan struct{}

	// CreateGate and CreateEntered do the same for Create.
	CreateGate    chan struct{}
	CreateEntered chan struct{}
}

// NewFake creates a Fake seeded with the given words (ids 1..n).
func NewFake(seed ...string) *Fake {
	return &Fake{svc: words.NewService(words.NewMemoryStore(seed...))}
}

// Service exposes the backing service for assertions on server state.
func (f *Fake) Service() *words.Service {
	return f.svc
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many calls of op were made.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *Fake) injected(get func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return get()
}

// SetFetchErr sets the FetchPage failure under the fake's lock.
func (f *Fake) SetFetchErr(err error) {
	f.mu.Lock()
	f.FetchErr = err
	f.mu.Unlock()
}

// SetUpdateErr sets the Update failure under the fake's lock.
func (f *Fake) SetUpdateErr(err error) {
	f.mu.Lock()
	f.UpdateErr = err
	f.mu.Unlock()
}

// SetDeleteErr sets the Delete failure under the fake's lock.
func (f *Fake) SetDeleteErr(err error) {
	f.mu.Lock()
	f.DeleteErr = err
	f.mu.Unlock()
}

// SetCreateErr sets the Create failure under the fake's lock.
func (f *Fake) SetCreateErr(err error) {
	f.mu.Lock()
	f.CreateErr = err
	f.mu.Unlock()
}

// FetchPage implements Client.
func (f *Fake) FetchPage(ctx context.Context, page, pageSize int) (words.Page, error) {
	f.record(Call{Op: "fetch", Page: page})
	if f.Entered != nil {
		f.Entered <- struct{}{}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return words.Page{}, ctx.Err()
		}
	}
	if err := f.injected(func() error { return f.FetchErr }); err != nil {
		return words.Page{}, err
	}
	p, err := f.svc.List(ctx, page, pageSize)
	if err != nil {
		return words.Page{}, err
	}
	return *p, nil
}

// Create implements Client.
func (f *Fake) Create(ctx context.Context, localID int, text string) (words.Word, error) {
	f.record(Call{Op: "create", ID: localID, Text: text})
	if f.CreateEntered != nil {
		f.CreateEntered <- struct{}{}
	}
	if f.CreateGate != nil {
		select {
		case <-f.CreateGate:
		case <-ctx.Done():
			return words.Word{}, ctx.Err()
		}
	}
	if err := f.injected(func() error { return f.CreateErr }); err != nil {
		return words.Word{}, err
	}
	w, err := f.svc.Create(ctx, text)
	if err != nil {
		return words.Word{}, err
	}
	return *w, nil
}

// Update implements Client.
func (f *Fake) Update(ctx context.Context, id int, text string) (words.Word, error) {
	f.record(Call{Op: "update", ID: id, Text: text})
	if err := f.injected(func() error { return f.UpdateErr }); err != nil {
		return words.Word{}, err
	}
	w, err := f.svc.Update(ctx, id, text)
	if err != nil {
		return words.Word{}, err
	}
	return *w, nil
}

// Delete implements Client.
func (f *Fake) Delete(ctx context.Context, id int) error {
	f.record(Call{Op: "delete", ID: id})
	if err := f.injected(func() error { return f.DeleteErr }); err != nil {
		return err
	}
	_, err := f.svc.Delete(ctx, id)
	return err
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*Fake)(nil)
)
