package schema

// Document is the central data carrier of the indexing and retrieval
// pipelines: one bounded chunk of a web page's text, its source URL, its
// vector representation, and (after a search) the similarity score.
type Document struct {
	// URL is the page the chunk was extracted from. One URL maps to many
	// chunk rows; the pair (URL, position in sequence) identifies a chunk.
	URL string `json:"url"`

	// Chunk is the text content of the chunk.
	Chunk string `json:"chunk"`

	// Embedding is the L2-normalized vector representation of the chunk.
	Embedding []float32 `json:"-"`

	// Score is the cosine similarity to the query, set only on search results.
	Score float32 `json:"score"`
}
