package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/words"
)

// Handler wraps the word service and provides HTTP handlers
type Handler struct {
	words *words.Service
}

// NewHandler creates a new API handler with the given word service
func NewHandler(wordService *words.Service) *Handler {
	return &Handler{words: wordService}
}

// RegisterRoutes registers all word API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /words", h.ListWords)
	mux.HandleFunc("POST /words", h.CreateWord)
	mux.HandleFunc("PUT /words/{id}", h.UpdateWord)
	mux.HandleFunc("DELETE /words/{id}", h.DeleteWord)
}

// ListWords handles GET /words?page=&pageSize=
func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", words.DefaultPageSize)

	result, err := h.words.List(r.Context(), page, pageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateWord handles POST /words
func (h *Handler) CreateWord(w http.ResponseWriter, r *http.Request) {
	var params words.WriteParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	created, err := h.words.Create(r.Context(), params.Word)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateWord handles PUT /words/{id}
func (h *Handler) UpdateWord(w http.ResponseWriter, r *http.Request) {
	var params words.WriteParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	// The word is validated before the id so a bad body wins over an unknown id.
	if params.Word == "" {
		writeError(w, http.StatusBadRequest, "Word is required")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Word not found")
		return
	}

	updated, err := h.words.Update(r.Context(), id, params.Word)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteWord handles DELETE /words/{id}
func (h *Handler) DeleteWord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Word not found")
		return
	}

	result, err := h.words.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		obs.From(r.Context()).With("pkg", "api").Error("word_api_failed",
			"method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	writeError(w, status, errs.MessageOf(err))
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// queryInt parses a positive integer query parameter, falling back on anything else.
func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
