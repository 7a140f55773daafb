// Package wordsync keeps a client-side working set of words in step with the
// remote word service.
//
// The Engine loads pages on demand, applies creates, updates and deletes
// optimistically, and snapshots the working set to a local mirror after every
// change. A mutex guards the state but is never held across a remote call or
// a mirror write; the in-flight flag is what keeps fetches from overlapping.
package wordsync

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/mirror"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/remote"
	"github.com/kuitang/wordfeed/internal/words"
)

// DefaultPageSize is the number of words requested per fetch.
const DefaultPageSize = 200

// Palette is the fixed set of display colours a record can be assigned.
var Palette = []string{
	"rgb(59, 130, 246)",
	"rgb(29, 78, 216)",
	"rgb(96, 165, 250)",
	"rgb(134, 45, 192)",
	"rgb(220, 38, 38)",
	"rgb(255, 65, 54)",
	"rgb(6, 182, 212)",
	"rgb(32, 201, 151)",
	"rgb(22, 163, 74)",
	"rgb(245, 158, 11)",
	"rgb(249, 115, 22)",
	"rgb(139, 92, 246)",
	"rgb(17, 17, 119)",
}

// Record is one word in the working set.
type Record = mirror.Record

// Confirmer gates a delete. Returning false cancels it before any remote call.
type Confirmer func(ctx context.Context, rec Record) bool

// Always confirms every delete.
func Always(context.Context, Record) bool { return true }

// Never declines every delete.
func Never(context.Context, Record) bool { return false }

// Status is the fetch cursor state.
type Status int

const (
	Idle Status = iota
	Fetching
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Exhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

// State is a read-only copy of the engine state.
type State struct {
	Words     []Record
	Cursor    int  // next page to request, from 1
	Exhausted bool // the server returned an empty page
	InFlight  bool // a fetch is outstanding
	EditingID int  // 0 when nothing is being edited
	EditText  string
	Draft     string
	// MirrorErr is the most recent mirror failure, nil once a save succeeds.
	MirrorErr error
}

// FetchResult describes one FetchMore call.
type FetchResult struct {
	Added     int  // records appended
	Refreshed int  // records already present whose text was refreshed
	Skipped   bool // nothing was requested: a fetch was in flight or the list is exhausted
	Exhausted bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithRand sets the colour source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// Engine is the client sync state machine.
type Engine struct {
	remote   remote.Client
	mirror   mirror.Mirror
	pageSize int
	logger   *slog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	words     []Record
	cursor    int
	exhausted bool
	inFlight  bool
	editingID int
	editText  string
	draft     string
	mirrorErr error

	// pending maps an in-flight create to the local id its record holds now.
	// The id can move if a fetched page claims it first.
	pending   map[int]int
	nextToken int

	// shrunk counts deletes of fetched words, which shift later server pages
	// down; a fetch that overlaps one re-derives the cursor.
	shrunk uint64

	// version orders snapshots so a slow save never overwrites a newer one.
	version   uint64
	persistMu sync.Mutex
	saved     uint64
}

// New creates an Engine. Call Initialize before anything else.
func New(client remote.Client, m mirror.Mirror, opts ...Option) *Engine {
	e := &Engine{
		remote:   client,
		mirror:   m,
		pageSize: DefaultPageSize,
		logger:   obs.Pkg("wordsync"),
		cursor:   1,
		words:    []Record{},
		pending:  make(map[int]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

// PageSize returns the number of words requested per fetch.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// Initialize seeds the working set from the mirror, or fetches the first
// page when the mirror is absent, empty or unreadable.
func (e *Engine) Initialize(ctx context.Context) error {
	records, err := e.mirror.Load(ctx)
	if err != nil {
		e.log(ctx).Warn("mirror_load_failed", "error", err.Error())
		records = nil
	}

	if len(records) > 0 {
		e.mu.Lock()
		e.words = slices.Clone(records)
		e.cursor = resumePage(records, e.pageSize)
		e.exhausted = false
		e.inFlight = false
		e.mu.Unlock()
		e.log(ctx).Info("mirror_adopted", "count", len(records))
		return nil
	}

	_, err = e.FetchMore(ctx)
	return err
}

// FetchMore requests the page at the cursor and appends unseen records.
// It is a no-op while another fetch is in flight or once exhausted.
func (e *Engine) FetchMore(ctx context.Context) (FetchResult, error) {
	e.mu.Lock()
	if e.inFlight || e.exhausted {
		res := FetchResult{Skipped: true, Exhausted: e.exhausted}
		e.mu.Unlock()
		return res, nil
	}
	e.inFlight = true
	page := e.cursor
	shrunk := e.shrunk
	e.mu.Unlock()

	result, err := e.remote.FetchPage(ctx, page, e.pageSize)
	if err != nil {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
		e.log(ctx).Warn("fetch_failed", "page", page, "error", err.Error())
		return FetchResult{}, err
	}

	e.mu.Lock()
	if len(result.Data) == 0 {
		e.exhausted = true
		e.inFlight = false
		e.mu.Unlock()
		e.log(ctx).Info("fetch_exhausted", "page", page)
		return FetchResult{Exhausted: true}, nil
	}

	res := e.mergeLocked(result.Data)
	e.cursor = page + 1
	if e.shrunk != shrunk {
		e.cursor = min(e.cursor, resumePage(e.words, e.pageSize))
	}
	e.inFlight = false
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	e.log(ctx).Debug("fetch_applied", "page", page, "added", res.Added, "refreshed", res.Refreshed)
	e.persist(ctx, snap, version)
	return res, nil
}

// mergeLocked appends fetched records in response order. A record whose id
// is already present keeps its colour and position and takes the new text.
func (e *Engine) mergeLocked(fetched []words.Word) FetchResult {
	var res FetchResult
	incoming := make(map[int]struct{}, len(fetched))
	for _, w := range fetched {
		incoming[w.ID] = struct{}{}
	}
	// An optimistic record holding a fetched id moves out of the way first.
	for token, localID := range e.pending {
		if _, clash := incoming[localID]; clash {
			e.rekeyLocked(token, localID, incoming)
		}
	}

	index := e.indexLocked()
	for _, w := range fetched {
		if i, ok := index[w.ID]; ok {
			e.words[i].Word = w.Word
			e.words[i].Local = false
			res.Refreshed++
			continue
		}
		e.words = append(e.words, Record{ID: w.ID, Word: w.Word, Color: e.colorLocked()})
		index[w.ID] = len(e.words) - 1
		res.Added++
	}
	return res
}

// CreateWord prepends a record under a local id, then asks the server for
// the real one. On failure the record is rolled back.
func (e *Engine) CreateWord(ctx context.Context, text string) (Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Record{}, errs.New(errs.InvalidArgument, "Word is required")
	}

	e.mu.Lock()
	rec := Record{ID: e.maxIDLocked(nil) + 1, Word: text, Color: e.colorLocked(), Local: true}
	e.words = slices.Insert(e.words, 0, rec)
	e.nextToken++
	token := e.nextToken
	e.pending[token] = rec.ID
	snap, version := e.snapshotLocked()
	e.mu.Unlock()
	e.persist(ctx, snap, version)

	created, err := e.remote.Create(ctx, rec.ID, text)

	e.mu.Lock()
	localID := e.pending[token]
	delete(e.pending, token)

	if err != nil {
		e.removeLocked(localID)
		snap, version = e.snapshotLocked()
		e.mu.Unlock()
		e.log(ctx).Warn("create_rolled_back", "local_id", localID, "error", err.Error())
		e.persist(ctx, snap, version)
		return Record{}, err
	}

	// Another record may already hold the server id: an optimistic one is
	// moved aside, a fetched copy of this same word is dropped.
	fetched := false
	if i := e.findLocked(created.ID); i >= 0 && created.ID != localID {
		if token, ok := e.pendingTokenLocked(created.ID); ok {
			e.rekeyLocked(token, created.ID, map[int]struct{}{created.ID: {}})
		} else {
			fetched = !e.words[i].Local
			e.words = slices.Delete(e.words, i, i+1)
		}
	}

	i := e.findLocked(localID)
	if i < 0 {
		// Initialize replaced the working set mid-create.
		rec = Record{ID: created.ID, Word: created.Word, Color: e.colorLocked(), Local: !fetched}
		e.words = slices.Insert(e.words, 0, rec)
	} else {
		e.words[i].ID = created.ID
		e.words[i].Word = created.Word
		e.words[i].Local = !fetched
		rec = e.words[i]
	}
	snap, version = e.snapshotLocked()
	e.mu.Unlock()

	e.log(ctx).Info("word_created", "local_id", localID, "id", created.ID)
	e.persist(ctx, snap, version)
	return rec, nil
}

// UpdateWord applies newText locally and sends it to the server. A remote
// failure leaves the local text in place and returns the error. The edit
// state is cleared whatever the outcome, local rejections included.
func (e *Engine) UpdateWord(ctx context.Context, id int, newText string) (Record, error) {
	newText = strings.TrimSpace(newText)

	e.mu.Lock()
	i := e.findLocked(id)
	if err := e.checkUpdateLocked(i, id, newText); err != nil {
		e.clearEditLocked()
		e.mu.Unlock()
		return Record{}, err
	}
	e.words[i].Word = newText
	e.mu.Unlock()

	updated, err := e.remote.Update(ctx, id, newText)

	e.mu.Lock()
	e.clearEditLocked()
	if err != nil {
		var rec Record
		if j := e.findLocked(id); j >= 0 {
			rec = e.words[j]
		}
		e.mu.Unlock()
		e.log(ctx).Warn("update_failed", "id", id, "error", err.Error())
		return rec, err
	}

	rec := Record{ID: updated.ID, Word: updated.Word}
	if j := e.findLocked(id); j >= 0 {
		e.words[j].Word = updated.Word
		rec = e.words[j]
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(ctx, snap, version)
	return rec, nil
}

func (e *Engine) checkUpdateLocked(i, id int, text string) error {
	if i < 0 {
		return errs.New(errs.NotFound, "Word not found")
	}
	if text == "" {
		return errs.New(errs.InvalidArgument, "Word is required")
	}
	if _, pending := e.pendingTokenLocked(id); pending {
		return errs.New(errs.FailedPrecondition, "Word is still being created")
	}
	return nil
}

// DeleteWord removes id after confirm approves it and the server agrees.
// It reports whether the record was deleted. A nil confirm declines.
func (e *Engine) DeleteWord(ctx context.Context, id int, confirm Confirmer) (bool, error) {
	e.mu.Lock()
	i := e.findLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return false, errs.New(errs.NotFound, "Word not found")
	}
	if _, pending := e.pendingTokenLocked(id); pending {
		e.mu.Unlock()
		return false, errs.New(errs.FailedPrecondition, "Word is still being created")
	}
	rec := e.words[i]
	e.mu.Unlock()

	if confirm == nil || !confirm(ctx, rec) {
		e.log(ctx).Debug("delete_declined", "id", id)
		return false, nil
	}

	if err := e.remote.Delete(ctx, id); err != nil {
		e.log(ctx).Warn("delete_failed", "id", id, "error", err.Error())
		return false, err
	}

	e.mu.Lock()
	if j := e.findLocked(id); j >= 0 {
		fetched := !e.words[j].Local
		e.words = slices.Delete(e.words, j, j+1)
		if fetched {
			// The server list closed up behind the cursor.
			e.shrunk++
			if !e.exhausted {
				e.cursor = min(e.cursor, resumePage(e.words, e.pageSize))
			}
		}
	}
	if e.editingID == id {
		e.clearEditLocked()
	}
	snap, version := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(ctx, snap, version)
	return true, nil
}

// BeginEdit marks id as being edited and returns its current text.
func (e *Engine) BeginEdit(id int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.findLocked(id)
	if i < 0 {
		return "", errs.New(errs.NotFound, "Word not found")
	}
	e.editingID = id
	e.editText = e.words[i].Word
	return e.editText, nil
}

// CancelEdit leaves edit mode without touching the record.
func (e *Engine) CancelEdit() {
	e.mu.Lock()
	e.clearEditLocked()
	e.mu.Unlock()
}

func (e *Engine) clearEditLocked() {
	e.editingID = 0
	e.editText = ""
}

// SetEditText replaces the text being edited.
func (e *Engine) SetEditText(text string) {
	e.mu.Lock()
	e.editText = text
	e.mu.Unlock()
}

// SubmitEdit sends the edited text for the record in edit mode.
func (e *Engine) SubmitEdit(ctx context.Context) (Record, error) {
	e.mu.Lock()
	id, text := e.editingID, e.editText
	e.mu.Unlock()
	if id == 0 {
		return Record{}, errs.New(errs.FailedPrecondition, "No word is being edited")
	}
	return e.UpdateWord(ctx, id, text)
}

// SetDraft replaces the new-word draft.
func (e *Engine) SetDraft(text string) {
	e.mu.Lock()
	e.draft = text
	e.mu.Unlock()
}

// SubmitDraft creates a word from the draft and clears it on success.
func (e *Engine) SubmitDraft(ctx context.Context) (Record, error) {
	e.mu.Lock()
	draft := e.draft
	e.mu.Unlock()

	rec, err := e.CreateWord(ctx, draft)
	if err != nil {
		return Record{}, err
	}

	e.mu.Lock()
	if e.draft == draft {
		e.draft = ""
	}
	e.mu.Unlock()
	return rec, nil
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Words:     slices.Clone(e.words),
		Cursor:    e.cursor,
		Exhausted: e.exhausted,
		InFlight:  e.inFlight,
		EditingID: e.editingID,
		EditText:  e.editText,
		Draft:     e.draft,
		MirrorErr: e.mirrorErr,
	}
}

// Status reports the fetch cursor state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.inFlight:
		return Fetching
	case e.exhausted:
		return Exhausted
	default:
		return Idle
	}
}

// Len returns the working set size.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.words)
}

// persist writes snap unless a newer snapshot has already been saved.
// Failures are recorded and logged; they never undo the in-memory change.
func (e *Engine) persist(ctx context.Context, snap []Record, version uint64) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	if version <= e.saved {
		return
	}

	err := e.mirror.Save(ctx, snap)
	e.mu.Lock()
	e.mirrorErr = err
	e.mu.Unlock()
	if err != nil {
		e.log(ctx).Warn("mirror_save_failed", "error", err.Error(), "count", len(snap))
		return
	}
	e.saved = version
}

// resumePage is the first page that may hold server words missing from
// records. Fetched words form a prefix of the server's list and local
// creates sit past its end, so only fetched words count.
func resumePage(records []Record, pageSize int) int {
	fetched := 0
	for _, r := range records {
		if !r.Local {
			fetched++
		}
	}
	return fetched/pageSize + 1
}

func (e *Engine) snapshotLocked() ([]Record, uint64) {
	e.version++
	return slices.Clone(e.words), e.version
}

func (e *Engine) colorLocked() string {
	return Palette[e.rng.IntN(len(Palette))]
}

func (e *Engine) findLocked(id int) int {
	return slices.IndexFunc(e.words, func(r Record) bool { return r.ID == id })
}

func (e *Engine) indexLocked() map[int]int {
	index := make(map[int]int, len(e.words))
	for i, r := range e.words {
		index[r.ID] = i
	}
	return index
}

func (e *Engine) removeLocked(id int) {
	if i := e.findLocked(id); i >= 0 {
		e.words = slices.Delete(e.words, i, i+1)
	}
}

// maxIDLocked returns the highest id in the working set and in extra.
func (e *Engine) maxIDLocked(extra map[int]struct{}) int {
	top := 0
	for _, r := range e.words {
		top = max(top, r.ID)
	}
	for id := range extra {
		top = max(top, id)
	}
	return top
}

func (e *Engine) pendingTokenLocked(id int) (int, bool) {
	for token, localID := range e.pending {
		if localID == id {
			return token, true
		}
	}
	return 0, false
}

// rekeyLocked moves a pending record off oldID onto an id above everything
// in the working set and in reserved.
func (e *Engine) rekeyLocked(token, oldID int, reserved map[int]struct{}) {
	i := e.findLocked(oldID)
	if i < 0 {
		return
	}
	newID := e.maxIDLocked(reserved) + 1
	e.words[i].ID = newID
	e.pending[token] = newID
	e.logger.Debug("pending_rekeyed", "from", oldID, "to", newID)
}

func (e *Engine) log(ctx context.Context) *slog.Logger {
	return obs.From(ctx).With("pkg", "wordsync")
}
