package pipeline

import (
	"context"
	"fmt"
	"sort"

	"htmlsearch/internal/embedding"
	"htmlsearch/internal/rag/interfaces"
	"htmlsearch/internal/rag/schema"
	"htmlsearch/internal/rag/vectormath"
	"htmlsearch/pkg/logger"
)

// SearchError wraps a failed stage of the retrieval pipeline.
type SearchError struct {
	Stage string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// RetrievalOptions tune the retrieval pipeline's behavior.
type RetrievalOptions struct {
	// TopK caps the number of results; the effective limit is
	// min(TopK, chunks just indexed for the URL).
	TopK int

	// RestrictToURL limits the ANN search to the request's URL. When false
	// the search scans the whole collection.
	RestrictToURL bool

	// FailOnReindexError makes Search return an error when the mandatory
	// re-index step fails; otherwise it logs and searches whatever rows
	// already exist for the URL.
	FailOnReindexError bool
}

// RetrievalPipeline answers similarity queries over a URL's content. Every
// search re-runs the full indexing pipeline first so results always reflect
// the page's current content; the cost is paying fetch+embed+store latency
// on each call.
type RetrievalPipeline struct {
	indexer  *IndexingPipeline
	embedder embedding.Embedding
	store    interfaces.VectorStore
	opts     RetrievalOptions
	log      *logger.Logger
}

// NewRetrievalPipeline creates a RetrievalPipeline.
func NewRetrievalPipeline(
	indexer *IndexingPipeline,
	embedder embedding.Embedding,
	store interfaces.VectorStore,
	opts RetrievalOptions,
	log *logger.Logger,
) *RetrievalPipeline {
	return &RetrievalPipeline{
		indexer:  indexer,
		embedder: embedder,
		store:    store,
		opts:     opts,
		log:      log,
	}
}

// Search re-indexes the URL, embeds the query, and returns the most similar
// chunks ordered by score descending. A page that yields no chunks returns
// an empty result set.
func (p *RetrievalPipeline) Search(ctx context.Context, url, query string) ([]*schema.Document, error) {
	limit := p.opts.TopK

	chunksIndexed, err := p.indexer.Index(ctx, url)
	switch {
	case err != nil && p.opts.FailOnReindexError:
		return nil, &SearchError{Stage: "re-index failed", Err: err}
	case err != nil:
		p.log.Warn(fmt.Sprintf("re-index of %s failed, searching existing rows: %v", url, err))
	case chunksIndexed == 0:
		return []*schema.Document{}, nil
	default:
		if chunksIndexed < limit {
			limit = chunksIndexed
		}
	}

	queryEmbeddings, err := p.embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(queryEmbeddings) == 0 {
		if err == nil {
			err = embedding.ErrNoEmbeddings
		}
		return nil, &SearchError{Stage: "query embedding failed", Err: err}
	}
	vectormath.NormalizeRows(queryEmbeddings)

	urlFilter := ""
	if p.opts.RestrictToURL {
		urlFilter = url
	}

	docs, err := p.store.Search(ctx, queryEmbeddings[0], limit, urlFilter)
	if err != nil {
		return nil, &SearchError{Stage: "store search failed", Err: err}
	}

	// The store should already rank by similarity, but its ordering is not
	// contractual. Re-sort so callers can rely on score-descending output.
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})

	return docs, nil
}
