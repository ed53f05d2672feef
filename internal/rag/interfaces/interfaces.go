package interfaces

import (
	"context"

	"htmlsearch/internal/rag/schema"
)

// Fetcher retrieves the raw HTML of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Renderer is an alternate fetch strategy that loads a page in a full
// browser engine and returns the rendered DOM's HTML. Used for pages that
// block plain HTTP clients.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Splitter splits normalized text into an ordered sequence of chunks of at
// most maxTokens tokens each.
type Splitter interface {
	Split(text string, maxTokens int) []string
}

// VectorStore stores (url, chunk, embedding) rows and answers approximate
// nearest-neighbor queries over them.
type VectorStore interface {
	// Add inserts one row per document.
	Add(ctx context.Context, docs []*schema.Document) error

	// DeleteByURL removes every row whose url equals the given string.
	DeleteByURL(ctx context.Context, url string) error

	// Search returns up to topK documents ranked by similarity to the vector.
	// A non-empty urlFilter restricts the search to rows with that exact URL.
	Search(ctx context.Context, vector []float32, topK int, urlFilter string) ([]*schema.Document, error)

	// Flush makes previously inserted rows visible to subsequent searches.
	Flush(ctx context.Context) error
}
