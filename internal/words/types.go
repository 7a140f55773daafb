package words

import "context"

const (
	// DefaultPageSize is used when a request omits pageSize or sends a non-numeric one.
	DefaultPageSize = 200

	// MaxPageSize bounds a single page read.
	MaxPageSize = 1000
)

// Word is one record of the server-side collection.
type Word struct {
	ID   int    `json:"id"`
	Word string `json:"word"`
}

// Page is the paged read response of GET /words.
type Page struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
	Data       []Word `json:"data"`
}

// DeleteResult is the response body of DELETE /words/{id}.
type DeleteResult struct {
	Message     string `json:"message"`
	DeletedWord Word   `json:"deletedWord"`
}

// WriteParams is the request body of POST /words and PUT /words/{id}.
type WriteParams struct {
	Word string `json:"word"`
}

// Store persists the word collection in insertion order.
// Implementations allocate ids as one past the highest id ever issued.
type Store interface {
	// Slice returns up to limit words starting at offset, plus the total count.
	Slice(ctx context.Context, offset, limit int) ([]Word, int, error)
	Create(ctx context.Context, word string) (Word, error)
	// Update and Delete return an errs.NotFound error for unknown ids.
	Update(ctx context.Context, id int, word string) (Word, error)
	Delete(ctx context.Context, id int) (Word, error)
	Close() error
}
