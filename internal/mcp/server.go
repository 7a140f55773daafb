package mcp

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kuitang/wordfeed/internal/logutil"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/words"
)

const (
	maxMCPBodyBytes           = 1 << 20
	mcpDebugBodyLogLimitBytes = 8 * 1024
)

// Server wraps the MCP server with word handling
type Server struct {
	mcpServer   *mcp.Server
	handler     *Handler
	httpHandler http.Handler
}

// NewServer creates a new MCP server exposing the word tools.
func NewServer(wordService *words.Service) *Server {
	handler := NewHandler(wordService)

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "wordfeed",
			Version: "1.0.0",
		},
		nil,
	)

	for _, tool := range ToolDefinitions() {
		mcp.AddTool(mcpServer, tool, handler.createToolHandler(tool.Name))
	}
	registerPrompts(mcpServer)

	// Stateless JSON responses: every request stands alone and no SSE stream is kept.
	httpHandler := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{
			JSONResponse: true,
			Stateless:    true,
		},
	)

	return &Server{
		mcpServer:   mcpServer,
		handler:     handler,
		httpHandler: httpHandler,
	}
}

// ServeHTTP implements http.Handler for the Streamable HTTP transport.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, Last-Event-ID")
	w.Header().Set("Access-Control-Allow-Methods", "POST, DELETE, OPTIONS")

	logger := obs.From(r.Context()).With("pkg", "mcp")

	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost, http.MethodDelete:
	default:
		// Stateless mode has no server-initiated stream to GET.
		w.Header().Set("Allow", "POST, DELETE, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var reqBody []byte
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxMCPBodyBytes+1))
		if err != nil {
			logger.Warn("mcp_body_read_failed", "error", err.Error())
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if len(body) > maxMCPBodyBytes {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		reqBody = body
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	logger.Debug("mcp_request",
		"method", r.Method,
		"headers", logutil.FormatHeadersForLog(r.Header),
		"body", logutil.FormatBodyForLog(reqBody, mcpDebugBodyLogLimitBytes))

	wrapped, recorder := obs.NewResponseRecorder(w)
	wrote := false
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("mcp_handler_panic", "panic", fmt.Sprint(rec))
			if !wrote {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}
	}()

	s.httpHandler.ServeHTTP(&writeTracker{ResponseWriter: wrapped, wrote: &wrote}, r)

	if !wrote {
		logger.Error("mcp_handler_no_response", "method", r.Method)
		http.Error(w, "MCP handler returned without writing response", http.StatusInternalServerError)
		return
	}
	if recorder.StatusCode() >= http.StatusBadRequest {
		logger.Warn("mcp_request_failed", "method", r.Method, "status", recorder.StatusCode())
	}
}

// writeTracker notes whether the delegate produced any response.
type writeTracker struct {
	http.ResponseWriter
	wrote *bool
}

func (t *writeTracker) WriteHeader(code int) {
	*t.wrote = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *writeTracker) Write(p []byte) (int, error) {
	*t.wrote = true
	return t.ResponseWriter.Write(p)
}

func (t *writeTracker) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (t *writeTracker) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
