package pager

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/mirror"
	"github.com/kuitang/wordfeed/internal/remote"
	"github.com/kuitang/wordfeed/internal/words"
	"github.com/kuitang/wordfeed/internal/wordsync"
)

func seed(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%02d", i+1)
	}
	return out
}

func newEngine(t *testing.T, pageSize int, fake *remote.Fake) *wordsync.Engine {
	t.Helper()
	e := wordsync.New(fake, mirror.NewMemory(), wordsync.WithPageSize(pageSize))
	require.NoError(t, e.Initialize(context.Background()))
	return e
}

var fastPolicy = Policy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestFetchAll_LoadsEverything(t *testing.T) {
	fake := remote.NewFake(seed(23)...)
	e := newEngine(t, 5, fake)

	added, err := FetchAll(context.Background(), e, fastPolicy)
	require.NoError(t, err)
	assert.Equal(t, 18, added)
	assert.Equal(t, 23, e.Len())
	assert.Equal(t, wordsync.Exhausted, e.Status())
}

// flakyFetch fails the first n fetches with a transport error.
type flakyFetch struct {
	*remote.Fake
	failures int
}

func (f *flakyFetch) FetchPage(ctx context.Context, page, pageSize int) (words.Page, error) {
	if f.failures > 0 {
		f.failures--
		return words.Page{}, errs.New(errs.Unavailable, "flaky")
	}
	return f.Fake.FetchPage(ctx, page, pageSize)
}

func TestFetchAll_RetriesTransientFailures(t *testing.T) {
	fake := &flakyFetch{Fake: remote.NewFake(seed(4)...)}
	e := wordsync.New(fake, mirror.NewMemory(), wordsync.WithPageSize(2))

	fake.failures = 2
	added, err := FetchAll(context.Background(), e, fastPolicy)
	require.NoError(t, err)
	assert.Equal(t, 4, added)
}

func TestFetchAll_GivesUpAfterMaxRetries(t *testing.T) {
	fake := remote.NewFake(seed(4)...)
	e := newEngine(t, 2, fake)
	fake.SetFetchErr(errs.New(errs.Unavailable, "down"))

	_, err := FetchAll(context.Background(), e, fastPolicy)
	assert.True(t, errs.IsTransport(err))
	// The initial fetch plus one attempt and three retries.
	assert.Equal(t, 5, fake.CallCount("fetch"))
}

func TestFetchAll_DoesNotRetryPermanentErrors(t *testing.T) {
	fake := remote.NewFake(seed(4)...)
	e := newEngine(t, 2, fake)
	fake.SetFetchErr(errs.New(errs.InvalidArgument, "bad page"))

	_, err := FetchAll(context.Background(), e, fastPolicy)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, 2, fake.CallCount("fetch"))
}

func TestBrowser_ScrollKeepsPositionAcrossFetch(t *testing.T) {
	fake := remote.NewFake(seed(30)...)
	e := newEngine(t, 10, fake)
	var out bytes.Buffer
	b := New(e, strings.NewReader(""), &out, Options{Height: 5, NoColor: true})
	b.render()
	ctx := context.Background()

	_, err := b.Handle(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, 5, b.ScrollOffset(), "re-layout after the fetch does not lose the place")
	assert.Equal(t, 20, e.Len(), "the second screen reaches the end, so a page is loaded")

	_, err = b.Handle(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, 10, b.ScrollOffset())
	assert.Equal(t, 20, e.Len(), "no fetch while a screen of rows is still ahead")

	_, err = b.Handle(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 5, b.ScrollOffset())
	assert.Contains(t, out.String(), "     6  w06")
}

func TestBrowser_Commands(t *testing.T) {
	fake := remote.NewFake(seed(3)...)
	e := newEngine(t, 10, fake)
	var out bytes.Buffer
	b := New(e, strings.NewReader("y\n"), &out, Options{Height: 10, NoColor: true})
	ctx := context.Background()

	_, err := b.Handle(ctx, "a hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", e.Snapshot().Words[0].Word)

	_, err = b.Handle(ctx, "e 1 uno")
	require.NoError(t, err)

	_, err = b.Handle(ctx, "d 2")
	require.NoError(t, err)
	assert.Contains(t, out.String(), `delete "w02"? [y/N]`)
	assert.Equal(t, 3, e.Len())

	_, err = b.Handle(ctx, "d zero")
	assert.True(t, errs.IsValidation(err))

	_, err = b.Handle(ctx, "x")
	assert.True(t, errs.IsValidation(err))

	quit, err := b.Handle(ctx, "q")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestBrowser_RunUntilEOF(t *testing.T) {
	fake := remote.NewFake(seed(2)...)
	e := newEngine(t, 10, fake)
	var out bytes.Buffer
	b := New(e, strings.NewReader("s\nbogus\n"), &out, Options{NoColor: true})

	require.NoError(t, b.Run(context.Background()))
	assert.Contains(t, out.String(), "2 words")
	assert.Contains(t, out.String(), "error: unknown command")
}

func TestFormatRecord(t *testing.T) {
	rec := wordsync.Record{ID: 7, Word: "teal", Color: "rgb(6, 182, 212)"}
	assert.Equal(t, "     7  teal", FormatRecord(rec, false))
	assert.Equal(t, "     7  \x1b[38;2;6;182;212mteal\x1b[0m", FormatRecord(rec, true))

	rec.Color = "not-a-colour"
	assert.Equal(t, "     7  teal", FormatRecord(rec, true))
}
