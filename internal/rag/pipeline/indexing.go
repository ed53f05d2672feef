package pipeline

import (
	"context"
	"fmt"

	"htmlsearch/internal/embedding"
	"htmlsearch/internal/rag/cleaner"
	"htmlsearch/internal/rag/interfaces"
	"htmlsearch/internal/rag/schema"
	"htmlsearch/internal/rag/vectormath"
	"htmlsearch/pkg/logger"
)

// IndexError wraps a failed stage of the indexing pipeline.
type IndexError struct {
	Stage string // "fetch failed", "embedding failed", ...
	Err   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// IndexingPipeline (re)indexes the textual content of one URL: fetch,
// clean, chunk, embed, then replace the URL's rows in the vector store.
type IndexingPipeline struct {
	fetcher   interfaces.Fetcher
	splitter  interfaces.Splitter
	embedder  embedding.Embedding
	store     interfaces.VectorStore
	maxTokens int
	log       *logger.Logger
}

// NewIndexingPipeline creates an IndexingPipeline.
func NewIndexingPipeline(
	fetcher interfaces.Fetcher,
	splitter interfaces.Splitter,
	embedder embedding.Embedding,
	store interfaces.VectorStore,
	maxTokens int,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		fetcher:   fetcher,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		maxTokens: maxTokens,
		log:       log,
	}
}

// Index fetches the URL and replaces its chunk rows with a freshly computed
// set, returning the number of chunks indexed. A page that yields no chunks
// returns 0 without touching the store, so existing rows survive a page that
// temporarily renders empty.
func (p *IndexingPipeline) Index(ctx context.Context, url string) (int, error) {
	rawHTML, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, &IndexError{Stage: "fetch failed", Err: err}
	}

	text := cleaner.Clean(rawHTML)
	chunks := p.splitter.Split(text, p.maxTokens)
	if len(chunks) == 0 {
		p.log.Info(fmt.Sprintf("no content chunks for %s, skipping store update", url))
		return 0, nil
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, &IndexError{Stage: "embedding failed", Err: err}
	}
	if len(embeddings) != len(chunks) {
		return 0, &IndexError{
			Stage: "embedding failed",
			Err:   fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks)),
		}
	}

	// Unit vectors make the store's dot product a cosine similarity.
	vectormath.NormalizeRows(embeddings)

	// Best effort: a failed delete must not block re-indexing. The cost is
	// that stale rows can accumulate for this URL until a delete succeeds.
	if err := p.store.DeleteByURL(ctx, url); err != nil {
		p.log.Warn(fmt.Sprintf("failed to delete existing rows for %s: %v", url, err))
	}

	docs := make([]*schema.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = &schema.Document{
			URL:       url,
			Chunk:     chunk,
			Embedding: embeddings[i],
		}
	}

	if err := p.store.Add(ctx, docs); err != nil {
		return 0, &IndexError{Stage: "store insert failed", Err: err}
	}
	if err := p.store.Flush(ctx); err != nil {
		return 0, &IndexError{Stage: "store flush failed", Err: err}
	}

	p.log.Info(fmt.Sprintf("indexed %d chunks for %s", len(chunks), url))
	return len(chunks), nil
}
