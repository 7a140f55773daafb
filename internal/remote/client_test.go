package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/wordfeed/internal/api"
	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/words"
)

func newAPIClient(t *testing.T, seed ...string) *HTTPClient {
	t.Helper()
	mux := http.NewServeMux()
	api.NewHandler(words.NewService(words.NewMemoryStore(seed...))).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, 5*time.Second, WithClientID("test-client"))
}

func newRawClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", 5*time.Second)
}

func TestHTTPClient_CRUDAgainstAPI(t *testing.T) {
	ctx := context.Background()
	c := newAPIClient(t, "alpha", "bravo", "charlie")

	page, err := c.FetchPage(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, []words.Word{{ID: 1, Word: "alpha"}, {ID: 2, Word: "bravo"}}, page.Data)

	page, err = c.FetchPage(ctx, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	created, err := c.Create(ctx, 3, "delta")
	require.NoError(t, err)
	assert.Equal(t, words.Word{ID: 4, Word: "delta"}, created)

	updated, err := c.Update(ctx, 4, "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", updated.Word)

	require.NoError(t, c.Delete(ctx, 4))
	assert.True(t, errs.IsNotFound(c.Delete(ctx, 4)))

	_, err = c.Update(ctx, 99, "x")
	assert.True(t, errs.IsNotFound(err))

	_, err = c.Create(ctx, 1, "   ")
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, "Word is required", errs.MessageOf(err))
}

func TestHTTPClient_SendsCorrelationHeaders(t *testing.T) {
	var gotClient, gotSession string
	c := newRawClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotClient = r.Header.Get(obs.HeaderClientID)
		gotSession = r.Header.Get(obs.HeaderSessionID)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":1,"pageSize":200,"totalItems":0,"totalPages":0,"data":[]}`))
	})
	c.clientID = "cli-1"

	_, err := c.FetchPage(context.Background(), 1, 200)
	require.NoError(t, err)
	assert.Equal(t, "cli-1", gotClient)
	assert.Equal(t, c.SessionID(), gotSession)
	assert.NotEmpty(t, gotSession)
}

func TestHTTPClient_MalformedResponsesAreTransportErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing data", `{"page":1}`},
		{"data not array", `{"data":{"id":1}}`},
		{"record without id", `{"data":[{"word":"a"}]}`},
		{"record with zero id", `{"data":[{"id":0,"word":"a"}]}`},
		{"record with empty word", `{"data":[{"id":1,"word":"  "}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRawClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := c.FetchPage(context.Background(), 1, 200)
			require.Error(t, err)
			assert.True(t, errs.IsTransport(err), "got %v", err)
		})
	}
}

func TestHTTPClient_CreateResponseShapeChecked(t *testing.T) {
	c := newRawClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	})
	_, err := c.Create(context.Background(), 1, "alpha")
	assert.True(t, errs.IsTransport(err))
}

func TestHTTPClient_CreateCarriesLocalID(t *testing.T) {
	var body map[string]any
	c := newRawClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":9,"word":"alpha"}`))
	})
	created, err := c.Create(context.Background(), 4, "alpha")
	require.NoError(t, err)
	assert.Equal(t, words.Word{ID: 9, Word: "alpha"}, created, "server id wins")
	assert.Equal(t, map[string]any{"id": float64(4), "word": "alpha"}, body)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusInternalServerError, errs.IsTransport},
		{http.StatusBadGateway, errs.IsTransport},
		{http.StatusTooManyRequests, func(err error) bool { return errs.Is(err, errs.RateLimited) }},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newRawClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			})
			_, err := c.FetchPage(context.Background(), 1, 200)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestHTTPClient_RetryAfterParsed(t *testing.T) {
	c := newRawClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.FetchPage(context.Background(), 1, 200)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 3*time.Second, rl.RetryAfter)
}

func TestHTTPClient_UnreachableIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	_, err := c.FetchPage(context.Background(), 1, 200)
	assert.True(t, errs.IsTransport(err))
}

func TestFake_RecordsAndInjects(t *testing.T) {
	ctx := context.Background()
	f := NewFake("alpha")

	_, err := f.Create(ctx, 2, "bravo")
	require.NoError(t, err)
	f.SetCreateErr(errs.New(errs.Unavailable, "down"))
	_, err = f.Create(ctx, 3, "charlie")
	assert.True(t, errs.IsTransport(err))

	assert.Equal(t, 2, f.CallCount("create"))
	assert.Equal(t, Call{Op: "create", ID: 2, Text: "bravo"}, f.Calls()[0])
	page, err := f.FetchPage(ctx, 1, 200)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
}
