// Package pager is a line-oriented terminal browser over the sync engine.
//
// The browser is the scroll surface: it shows a window of rows, asks the
// engine for more as the window nears the end, and uses a scroll.Coordinator
// so the reader stays on the same rows while a page is appended.
package pager

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/scroll"
	"github.com/kuitang/wordfeed/internal/wordsync"
)

// Options configures a Browser.
type Options struct {
	Height  int  // rows per screen, default 20
	NoColor bool // disable ANSI colour
}

// Browser renders the working set a screen at a time.
type Browser struct {
	engine *wordsync.Engine
	coord  scroll.Coordinator
	in     *bufio.Scanner
	out    io.Writer
	opts   Options

	offset   int
	rows     int
	afterRen []func()
}

// New creates a browser reading commands from in and drawing to out.
func New(engine *wordsync.Engine, in io.Reader, out io.Writer, opts Options) *Browser {
	if opts.Height <= 0 {
		opts.Height = 20
	}
	return &Browser{
		engine: engine,
		in:     bufio.NewScanner(in),
		out:    out,
		opts:   opts,
	}
}

// ScrollOffset implements scroll.Surface.
func (b *Browser) ScrollOffset() int { return b.offset }

// SetScrollOffset implements scroll.Surface.
func (b *Browser) SetScrollOffset(offset int) { b.offset = b.clamp(offset) }

// AfterRender implements scroll.Scheduler.
func (b *Browser) AfterRender(fn func()) { b.afterRen = append(b.afterRen, fn) }

func (b *Browser) clamp(offset int) int {
	return max(0, min(offset, b.rows-b.opts.Height))
}

// Run loops until the reader quits or input ends.
func (b *Browser) Run(ctx context.Context) error {
	b.render()
	for {
		fmt.Fprint(b.out, b.prompt())
		if !b.in.Scan() {
			fmt.Fprintln(b.out)
			return b.in.Err()
		}
		quit, err := b.Handle(ctx, b.in.Text())
		if err != nil {
			fmt.Fprintf(b.out, "error: %s\n", errs.MessageOf(err))
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Handle executes one command line and reports whether to quit.
func (b *Browser) Handle(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "", "j", "n":
		return false, b.scrollBy(ctx, b.opts.Height)
	case "k", "p":
		return false, b.scrollBy(ctx, -b.opts.Height)
	case "g":
		b.SetScrollOffset(0)
		b.render()
	case "a":
		return false, b.preserving(func() error {
			_, err := b.engine.CreateWord(ctx, arg)
			return err
		})
	case "e":
		idText, text, _ := strings.Cut(arg, " ")
		id, err := parseID(idText)
		if err != nil {
			return false, err
		}
		return false, b.preserving(func() error {
			_, err := b.engine.UpdateWord(ctx, id, text)
			return err
		})
	case "d":
		id, err := parseID(arg)
		if err != nil {
			return false, err
		}
		return false, b.preserving(func() error {
			_, err := b.engine.DeleteWord(ctx, id, b.confirm)
			return err
		})
	case "s":
		st := b.engine.Snapshot()
		fmt.Fprintf(b.out, "%d words, page %d next, %s\n", len(st.Words), st.Cursor, b.engine.Status())
	case "?", "h":
		fmt.Fprintln(b.out, "n/enter next  p prev  g top  a TEXT add  e ID TEXT edit  d ID delete  s status  q quit")
	case "q":
		return true, nil
	default:
		return false, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown command %q (? for help)", cmd))
	}
	return false, nil
}

// scrollBy moves the window and loads another page when the new window
// would reach the end of the loaded rows.
func (b *Browser) scrollBy(ctx context.Context, delta int) error {
	target := max(0, b.offset+delta)

	var fetchErr error
	if delta > 0 && target+b.opts.Height >= b.engine.Len() && b.engine.Status() == wordsync.Idle {
		b.coord.Save(target)
		_, fetchErr = b.engine.FetchMore(ctx)
		if fetchErr != nil {
			obs.From(ctx).With("pkg", "pager").Warn("browse_fetch_failed", "error", fetchErr.Error())
		}
		b.coord.Restore(b, b)
	} else {
		b.SetScrollOffset(target)
	}
	b.render()
	return fetchErr
}

// preserving runs a mutation and keeps the reader on the same rows.
func (b *Browser) preserving(fn func() error) error {
	err := b.coord.Around(b, b, fn)
	b.render()
	return err
}

func (b *Browser) confirm(_ context.Context, rec wordsync.Record) bool {
	fmt.Fprintf(b.out, "delete %q? [y/N] ", rec.Word)
	if !b.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(b.in.Text()))
	return answer == "y" || answer == "yes"
}

func (b *Browser) prompt() string {
	return fmt.Sprintf("[%d-%d/%d %s] ", b.offset+1, min(b.offset+b.opts.Height, b.rows), b.rows, b.engine.Status())
}

// render lays out the rows, runs the callbacks queued for after layout, and
// draws the window. A change in row count re-lays the list out from the top.
func (b *Browser) render() {
	st := b.engine.Snapshot()
	if len(st.Words) != b.rows {
		b.offset = 0
	}
	b.rows = len(st.Words)

	pending := b.afterRen
	b.afterRen = nil
	for _, fn := range pending {
		fn()
	}
	b.offset = b.clamp(b.offset)

	end := min(b.offset+b.opts.Height, b.rows)
	for _, rec := range st.Words[b.offset:end] {
		fmt.Fprintln(b.out, FormatRecord(rec, !b.opts.NoColor))
	}
	if b.rows == 0 {
		fmt.Fprintln(b.out, "(no words)")
	} else if st.Exhausted && end == b.rows {
		fmt.Fprintln(b.out, "-- end --")
	}
}

var rgbPattern = regexp.MustCompile(`^rgb\((\d{1,3}),\s*(\d{1,3}),\s*(\d{1,3})\)$`)

// FormatRecord renders one row, optionally tinting the word with its colour.
func FormatRecord(rec wordsync.Record, color bool) string {
	word := rec.Word
	if color {
		if m := rgbPattern.FindStringSubmatch(rec.Color); m != nil {
			word = fmt.Sprintf("\x1b[38;2;%s;%s;%sm%s\x1b[0m", m[1], m[2], m[3], word)
		}
	}
	return fmt.Sprintf("%6d  %s", rec.ID, word)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 1 {
		return 0, errs.New(errs.InvalidArgument, fmt.Sprintf("invalid word id %q", s))
	}
	return id, nil
}
