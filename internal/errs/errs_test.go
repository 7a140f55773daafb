package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"pgregory.net/rapid"
)

var allCodes = []Code{
	InvalidArgument,
	NotFound,
	FailedPrecondition,
	Unavailable,
	Persistence,
	RateLimited,
	Internal,
}

func testCodeOf_RoundtripForTypedErrors(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")

	err := New(code, message)
	if got := CodeOf(err); got != code {
		t.Fatalf("CodeOf(New) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(err); got != message {
		t.Fatalf("MessageOf(New) mismatch: got=%q want=%q", got, message)
	}
}

func TestCodeOf_RoundtripForTypedErrors(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOf_RoundtripForTypedErrors)
}

func testCodeOfAndMessageOf_WrappedTypedError(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")
	cause := errors.New(rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "cause"))

	err := Wrap(code, message, cause)
	wrapped := fmt.Errorf("outer: %w", err)

	if got := CodeOf(wrapped); got != code {
		t.Fatalf("CodeOf(wrapped) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(wrapped); got != message {
		t.Fatalf("MessageOf(wrapped) mismatch: got=%q want=%q", got, message)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("wrapped error lost its cause")
	}
}

func TestCodeOfAndMessageOf_WrappedTypedError(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOfAndMessageOf_WrappedTypedError)
}

func testUntypedAndNilFallbacks(t *rapid.T) {
	raw := rapid.StringMatching(`[a-zA-Z0-9 _:\-./]{1,80}`).Draw(t, "raw")
	untyped := errors.New(raw)

	if got := CodeOf(untyped); got != Internal {
		t.Fatalf("CodeOf(untyped) mismatch: got=%q want=%q", got, Internal)
	}
	if got := MessageOf(untyped); got != "internal error" {
		t.Fatalf("MessageOf(untyped) mismatch: got=%q want=%q", got, "internal error")
	}
	if got := CodeOf(nil); got != Internal {
		t.Fatalf("CodeOf(nil) mismatch: got=%q want=%q", got, Internal)
	}
	if IsValidation(nil) || IsNotFound(nil) || IsTransport(nil) || IsPersistence(nil) {
		t.Fatal("nil error must not match any code")
	}
}

func TestUntypedAndNilFallbacks(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testUntypedAndNilFallbacks)
}

func TestPredicates(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{New(InvalidArgument, "word is required"), IsValidation},
		{New(NotFound, "word not found"), IsNotFound},
		{Wrap(Unavailable, "fetch page", errors.New("connection refused")), IsTransport},
		{Wrap(Persistence, "save mirror", errors.New("disk full")), IsPersistence},
	}
	for _, tc := range cases {
		if !tc.pred(fmt.Errorf("ctx: %w", tc.err)) {
			t.Fatalf("predicate did not match %v", tc.err)
		}
	}
}

func TestHTTPStatus_Mapping(t *testing.T) {
	t.Parallel()
	cases := map[Code]int{
		InvalidArgument:      http.StatusBadRequest,
		NotFound:             http.StatusNotFound,
		FailedPrecondition:   http.StatusConflict,
		RateLimited:          http.StatusTooManyRequests,
		Unavailable:          http.StatusServiceUnavailable,
		Persistence:          http.StatusInternalServerError,
		Internal:             http.StatusInternalServerError,
		Code("unknown_code"): http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Fatalf("HTTPStatus mismatch: code=%q got=%d want=%d", code, got, want)
		}
	}
}
