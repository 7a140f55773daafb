package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/wordfeed/internal/words"
)

func newTestServer(t *testing.T, seed ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(words.NewService(words.NewMemoryStore(seed...))).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestListWords_DefaultsAndEnvelope(t *testing.T) {
	srv := newTestServer(t, "alpha", "bravo", "charlie")

	resp, body := do(t, http.MethodGet, srv.URL+"/words?page=abc&pageSize=-3", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 200, body["pageSize"])
	assert.EqualValues(t, 3, body["totalItems"])
	assert.EqualValues(t, 1, body["totalPages"])
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 3)
	assert.Equal(t, map[string]any{"id": float64(1), "word": "alpha"}, data[0])

	_, body = do(t, http.MethodGet, srv.URL+"/words?page=2&pageSize=2", "")
	data = body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "charlie", data[0].(map[string]any)["word"])
}

func TestCreateWord(t *testing.T) {
	srv := newTestServer(t, "alpha")

	resp, body := do(t, http.MethodPost, srv.URL+"/words", `{"word":"bravo"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(2), "word": "bravo"}, body)

	// A client-proposed id is ignored.
	resp, body = do(t, http.MethodPost, srv.URL+"/words", `{"id":1,"word":"charlie"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(3), "word": "charlie"}, body)

	resp, body = do(t, http.MethodPost, srv.URL+"/words", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Word is required", body["error"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/words", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateWord(t *testing.T) {
	srv := newTestServer(t, "alpha")

	resp, body := do(t, http.MethodPut, srv.URL+"/words/1", `{"word":"omega"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(1), "word": "omega"}, body)

	resp, body = do(t, http.MethodPut, srv.URL+"/words/99", `{"word":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Word not found", body["error"])

	resp, _ = do(t, http.MethodPut, srv.URL+"/words/99", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing word is checked before the id")
}

func TestDeleteWord(t *testing.T) {
	srv := newTestServer(t, "alpha", "bravo")

	resp, body := do(t, http.MethodDelete, srv.URL+"/words/2", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Word deleted", body["message"])
	assert.Equal(t, map[string]any{"id": float64(2), "word": "bravo"}, body["deletedWord"])

	resp, _ = do(t, http.MethodDelete, srv.URL+"/words/2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/words/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
