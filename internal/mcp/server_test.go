package mcp

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

func postJSONRPC(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestServeHTTP_RecoversPanicWith500(t *testing.T) {
	t.Parallel()
	server := &Server{
		httpHandler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("simulated panic")
		}),
	}

	resp := postJSONRPC(t, server, `{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "Internal server error")
}

func TestServeHTTP_NoWriteFromDelegateReturns500(t *testing.T) {
	t.Parallel()
	server := &Server{
		httpHandler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
	}

	resp := postJSONRPC(t, server, `{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "MCP handler returned without writing response")
}

func TestServeHTTP_RequestBodyTooLargeReturns413(t *testing.T) {
	t.Parallel()
	server := &Server{
		httpHandler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("delegate should not be called when request is oversized")
		}),
	}

	resp := postJSONRPC(t, server, strings.Repeat("a", maxMCPBodyBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestServeHTTP_GETReturns405WithAllowHeader(t *testing.T) {
	t.Parallel()
	server := &Server{
		httpHandler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("delegate should not be called for GET")
		}),
	}

	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	allow := resp.Header().Get("Allow")
	assert.Contains(t, allow, "POST")
	assert.Contains(t, allow, "DELETE")
}

func TestServeHTTP_OptionsPreflight(t *testing.T) {
	t.Parallel()
	resp := httptest.NewRecorder()
	NewServer(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/mcp", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_ToolsCallOverStreamableHTTP(t *testing.T) {
	t.Parallel()
	server := NewServer(words.NewService(words.NewMemoryStore("alpha")))

	resp := postJSONRPC(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"word_create","arguments":{"word":"bravo"}}}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.False(t, envelope.Result.IsError)
	require.Len(t, envelope.Result.Content, 1)

	var created words.Word
	require.NoError(t, json.Unmarshal([]byte(envelope.Result.Content[0].Text), &created))
	assert.Equal(t, words.Word{ID: 2, Word: "bravo"}, created)
}
