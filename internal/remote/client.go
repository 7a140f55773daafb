// Package remote is the client's typed view of the word service HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/logutil"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/urlutil"
	"github.com/kuitang/wordfeed/internal/words"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client is the remote word service.
//
// Errors carry errs codes: InvalidArgument for rejected input, NotFound for
// unknown ids, RateLimited when throttled, Unavailable for transport failures
// and malformed responses.
type Client interface {
	FetchPage(ctx context.Context, page, pageSize int) (words.Page, error)
	// Create sends the client's provisional id with the word. The server
	// assigns its own id and the returned record is authoritative.
	Create(ctx context.Context, localID int, text string) (words.Word, error)
	Update(ctx context.Context, id int, text string) (words.Word, error)
	Delete(ctx context.Context, id int) error
}

// HTTPClient talks to the word service over HTTP.
type HTTPClient struct {
	baseURL   string
	http      *http.Client
	clientID  string
	sessionID string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithClientID sets the X-Client-Id header sent on every request.
func WithClientID(id string) Option {
	return func(c *HTTPClient) { c.clientID = id }
}

// NewHTTPClient creates a client for the service rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:   urlutil.NormalizeBaseURL(baseURL),
		http:      &http.Client{Timeout: timeout},
		sessionID: obs.NewID("sess"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the id sent as X-Session-Id for this client's lifetime.
func (c *HTTPClient) SessionID() string {
	return c.sessionID
}

// wirePage mirrors words.Page with pointers so missing fields are detectable.
type wirePage struct {
	Page       *int          `json:"page"`
	PageSize   *int          `json:"pageSize"`
	TotalItems *int          `json:"totalItems"`
	TotalPages *int          `json:"totalPages"`
	Data       *[]wireRecord `json:"data"`
}

type wireRecord struct {
	ID   *int    `json:"id"`
	Word *string `json:"word"`
}

func (r wireRecord) word() (words.Word, error) {
	if r.ID == nil || *r.ID < 1 {
		return words.Word{}, fmt.Errorf("record has missing or non-positive id")
	}
	if r.Word == nil || strings.TrimSpace(*r.Word) == "" {
		return words.Word{}, fmt.Errorf("record %d has missing or empty word", *r.ID)
	}
	return words.Word{ID: *r.ID, Word: *r.Word}, nil
}

// FetchPage reads one page of the collection.
func (c *HTTPClient) FetchPage(ctx context.Context, page, pageSize int) (words.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var wp wirePage
	if err := c.do(ctx, http.MethodGet, "/words", q, nil, http.StatusOK, &wp); err != nil {
		return words.Page{}, err
	}
	if wp.Data == nil {
		return words.Page{}, c.malformed("GET /words", fmt.Errorf("missing data array"))
	}

	out := words.Page{Page: page, PageSize: pageSize, Data: make([]words.Word, 0, len(*wp.Data))}
	if wp.Page != nil {
		out.Page = *wp.Page
	}
	if wp.PageSize != nil {
		out.PageSize = *wp.PageSize
	}
	if wp.TotalItems != nil {
		out.TotalItems = *wp.TotalItems
	}
	if wp.TotalPages != nil {
		out.TotalPages = *wp.TotalPages
	}
	for _, rec := range *wp.Data {
		w, err := rec.word()
		if err != nil {
			return words.Page{}, c.malformed("GET /words", err)
		}
		out.Data = append(out.Data, w)
	}
	return out, nil
}

// createRequest is the POST /words body. The id is advisory.
type createRequest struct {
	ID   int    `json:"id,omitempty"`
	Word string `json:"word"`
}

// Create adds a word and returns the server's record.
func (c *HTTPClient) Create(ctx context.Context, localID int, text string) (words.Word, error) {
	var rec wireRecord
	if err := c.do(ctx, http.MethodPost, "/words", nil, createRequest{ID: localID, Word: text}, http.StatusCreated, &rec); err != nil {
		return words.Word{}, err
	}
	w, err := rec.word()
	if err != nil {
		return words.Word{}, c.malformed("POST /words", err)
	}
	return w, nil
}

// Update replaces the text of word id.
func (c *HTTPClient) Update(ctx context.Context, id int, text string) (words.Word, error) {
	var rec wireRecord
	path := "/words/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodPut, path, nil, words.WriteParams{Word: text}, http.StatusOK, &rec); err != nil {
		return words.Word{}, err
	}
	w, err := rec.word()
	if err != nil {
		return words.Word{}, c.malformed("PUT "+path, err)
	}
	return w, nil
}

// Delete removes word id.
func (c *HTTPClient) Delete(ctx context.Context, id int) error {
	var res struct {
		Message     *string     `json:"message"`
		DeletedWord *wireRecord `json:"deletedWord"`
	}
	path := "/words/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, http.StatusOK, &res); err != nil {
		return err
	}
	if res.DeletedWord == nil {
		return c.malformed("DELETE "+path, fmt.Errorf("missing deletedWord"))
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any, want int, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.Internal, "encode request", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlutil.BuildAbsolute(c.baseURL, path, query), reqBody)
	if err != nil {
		return errs.Wrap(errs.Internal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(obs.HeaderSessionID, c.sessionID)
	if c.clientID != "" {
		req.Header.Set(obs.HeaderClientID, c.clientID)
	}

	logger := obs.From(ctx).With("pkg", "remote", "method", method, "path", path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("remote_request_failed", "error", err.Error())
		return errs.Wrap(errs.Unavailable, "word service unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errs.Wrap(errs.Unavailable, "read response", err)
	}
	logger.Debug("remote_response", "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"body", logutil.FormatBodyForLog(data, 512))

	if resp.StatusCode != want {
		return statusError(resp, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.malformed(method+" "+path, err)
	}
	return nil
}

func (c *HTTPClient) malformed(op string, cause error) error {
	obs.Pkg("remote").Warn("remote_malformed_response", "op", op, "error", cause.Error())
	return errs.Wrap(errs.Unavailable, "malformed response from "+op, cause)
}

func statusError(resp *http.Response, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := http.StatusText(resp.StatusCode)
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return errs.New(errs.InvalidArgument, message)
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.NotFound, message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			err:        errs.New(errs.RateLimited, message),
		}
	default:
		return errs.New(errs.Unavailable, fmt.Sprintf("word service returned %d: %s", resp.StatusCode, message))
	}
}

// RateLimitError is returned on 429 and carries the server's Retry-After hint.
type RateLimitError struct {
	RetryAfter time.Duration
	err        error
}

func (e *RateLimitError) Error() string { return e.err.Error() }
func (e *RateLimitError) Unwrap() error { return e.err }

func parseRetryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
