package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextMiddleware_PropagatesClientHeaders(t *testing.T) {
	var got Correlation
	handler := RequestContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CorrelationFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/words?page=2", nil)
	req.Header.Set(HeaderClientID, "wordfeed/dev")
	req.Header.Set(HeaderSessionID, "sess-1")
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, "wordfeed/dev", got.ClientID)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got.TraceID)
	assert.Equal(t, got.TraceID, got.RequestID)
	assert.Equal(t, got.RequestID, resp.Header().Get(HeaderRequestID))
}

func TestRequestContextMiddleware_GeneratesRequestID(t *testing.T) {
	var got Correlation
	handler := RequestContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CorrelationFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, strings.HasPrefix(got.RequestID, "req-"), "request id %q", got.RequestID)
}

func TestExtractTraceID_RejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"garbage",
		"00-00000000000000000000000000000000-00f067aa0ba902b7-01",
		"00-4BF92F3577B34DA6A3CE929D0E0E473Z-00f067aa0ba902b7-01",
	} {
		assert.Empty(t, extractTraceID(in), "input %q", in)
	}
}

func TestAccessLogMiddleware_LogsStatusAndPath(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()
	SetLevel("debug")
	defer SetLevel("info")

	handler := RequestContextMiddleware(AccessLogMiddleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/words", nil))

	var event map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	assert.Equal(t, "http_access", event["msg"])
	assert.Equal(t, "/words", event["path"])
	assert.EqualValues(t, http.StatusCreated, event["status"])
	assert.EqualValues(t, 8, event["resp_bytes"])
	assert.NotEmpty(t, event["request_id"])
}
