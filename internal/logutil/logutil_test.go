package logutil

import (
	"net/http"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestFormatHeadersForLog_RedactsAndSorts(t *testing.T) {
	h := http.Header{}
	h.Set("X-Session-Id", "sess-1")
	h.Set("Authorization", "Bearer abc")
	h.Set("Content-Type", "application/json")

	got := FormatHeadersForLog(h)
	want := `authorization="[REDACTED]"; content-type="application/json"; x-session-id="sess-1"`
	if got != want {
		t.Fatalf("FormatHeadersForLog mismatch:\n got=%s\nwant=%s", got, want)
	}
	if FormatHeadersForLog(nil) != "{}" {
		t.Fatal("empty headers should format as {}")
	}
}

func testTruncateForLog_Bounded(t *rapid.T) {
	value := rapid.String().Draw(t, "value")
	limit := rapid.IntRange(1, 64).Draw(t, "limit")

	got := TruncateForLog(value, limit)
	if strings.Contains(got, "\n") {
		t.Fatalf("truncated output contains a newline: %q", got)
	}
	if len(got) > limit+len("... [truncated]") {
		t.Fatalf("output exceeds bound: len=%d limit=%d", len(got), limit)
	}
}

func TestTruncateForLog_Bounded(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncateForLog_Bounded)
}

func TestFormatBodyForLog(t *testing.T) {
	if got := FormatBodyForLog([]byte("abcdef"), 3); got != "abc [truncated]" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := FormatBodyForLog([]byte("abc"), 0); got != "abc" {
		t.Fatalf("unexpected passthrough: %q", got)
	}
	if got := FormatBodyForLog(nil, 10); got != "" {
		t.Fatalf("empty body should be empty, got %q", got)
	}
}
