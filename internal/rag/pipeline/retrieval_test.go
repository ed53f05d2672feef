package pipeline

import (
	"context"
	"errors"
	"sort"
	"testing"

	"htmlsearch/internal/rag/schema"
	"htmlsearch/internal/rag/splitters"
)

func newRetrievalPipeline(f *fakeFetcher, e *fakeEmbedder, s *fakeStore, opts RetrievalOptions) *RetrievalPipeline {
	indexer := NewIndexingPipeline(f, splitters.NewWordSplitter(), e, s, 5, testLogger())
	return NewRetrievalPipeline(indexer, e, s, opts, testLogger())
}

func defaultOpts() RetrievalOptions {
	return RetrievalOptions{TopK: 10, RestrictToURL: true, FailOnReindexError: true}
}

func TestSearchEmptyPageReturnsNoResults(t *testing.T) {
	store := newFakeStore()
	p := newRetrievalPipeline(&fakeFetcher{html: "<body></body>"}, &fakeEmbedder{}, store, defaultOpts())

	results, err := p.Search(context.Background(), "https://example.com/empty", "anything")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() returned %d results, want 0", len(results))
	}
	if store.searchCalls != 0 {
		t.Error("store search must not run when the page has no chunks")
	}
}

func TestSearchLimitIsMinOfTopKAndChunks(t *testing.T) {
	store := newFakeStore()
	// testPage yields 3 chunks with maxTokens=5, so the limit must drop to 3.
	p := newRetrievalPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, defaultOpts())

	if _, err := p.Search(context.Background(), "https://example.com/page", "test"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if store.lastTopK != 3 {
		t.Errorf("store searched with topK=%d, want 3", store.lastTopK)
	}
}

func TestSearchResultsSortedByScoreDescending(t *testing.T) {
	store := newFakeStore()
	store.searchResults = []*schema.Document{
		{URL: "u", Chunk: "low", Score: 0.21},
		{URL: "u", Chunk: "high", Score: 0.93},
		{URL: "u", Chunk: "mid", Score: 0.55},
	}
	p := newRetrievalPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, defaultOpts())

	results, err := p.Search(context.Background(), "https://example.com/page", "test")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !sort.SliceIsSorted(results, func(i, j int) bool { return results[i].Score > results[j].Score }) {
		t.Errorf("results not sorted by score descending: %+v", results)
	}
	if results[0].Chunk != "high" {
		t.Errorf("top result = %q, want %q", results[0].Chunk, "high")
	}
}

func TestSearchRestrictsToURLWhenConfigured(t *testing.T) {
	store := newFakeStore()
	p := newRetrievalPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, defaultOpts())

	url := "https://example.com/page"
	if _, err := p.Search(context.Background(), url, "test"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if store.lastURLFilter != url {
		t.Errorf("url filter = %q, want %q", store.lastURLFilter, url)
	}
}

func TestSearchWholeCollectionWhenUnrestricted(t *testing.T) {
	store := newFakeStore()
	opts := defaultOpts()
	opts.RestrictToURL = false
	p := newRetrievalPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, opts)

	if _, err := p.Search(context.Background(), "https://example.com/page", "test"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if store.lastURLFilter != "" {
		t.Errorf("url filter = %q, want empty (whole-collection search)", store.lastURLFilter)
	}
}

func TestSearchFailsFastOnReindexError(t *testing.T) {
	store := newFakeStore()
	p := newRetrievalPipeline(&fakeFetcher{err: errors.New("unreachable")}, &fakeEmbedder{}, store, defaultOpts())

	_, err := p.Search(context.Background(), "https://example.com/page", "test")

	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected *SearchError, got %v", err)
	}
	if searchErr.Stage != "re-index failed" {
		t.Errorf("Stage = %q, want %q", searchErr.Stage, "re-index failed")
	}
	if store.searchCalls != 0 {
		t.Error("store search must not run when fail-fast is enabled")
	}
}

func TestSearchServesExistingRowsWhenNotFailingFast(t *testing.T) {
	store := newFakeStore()
	store.searchResults = []*schema.Document{{URL: "u", Chunk: "stale but present", Score: 0.4}}
	opts := defaultOpts()
	opts.FailOnReindexError = false
	p := newRetrievalPipeline(&fakeFetcher{err: errors.New("unreachable")}, &fakeEmbedder{}, store, opts)

	results, err := p.Search(context.Background(), "https://example.com/page", "test")
	if err != nil {
		t.Fatalf("Search() error = %v, want stale rows served", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
	// Without a fresh chunk count the configured top-K applies unchanged.
	if store.lastTopK != opts.TopK {
		t.Errorf("store searched with topK=%d, want %d", store.lastTopK, opts.TopK)
	}
}

func TestSearchQueryEmbeddingFailure(t *testing.T) {
	store := newFakeStore()
	// Chunk embedding (inside the indexer) succeeds; only the query
	// embedding fails.
	indexer := NewIndexingPipeline(&fakeFetcher{html: testPage}, splitters.NewWordSplitter(), &fakeEmbedder{}, store, 5, testLogger())
	p := NewRetrievalPipeline(indexer, &fakeEmbedder{err: errors.New("backend down")}, store, defaultOpts(), testLogger())

	_, err := p.Search(context.Background(), "https://example.com/page", "test")

	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected *SearchError, got %v", err)
	}
	if searchErr.Stage != "query embedding failed" {
		t.Errorf("Stage = %q, want %q", searchErr.Stage, "query embedding failed")
	}
}

func TestSearchStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.searchErr = errors.New("collection not loaded")
	p := newRetrievalPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, defaultOpts())

	_, err := p.Search(context.Background(), "https://example.com/page", "test")

	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected *SearchError, got %v", err)
	}
	if searchErr.Stage != "store search failed" {
		t.Errorf("Stage = %q, want %q", searchErr.Stage, "store search failed")
	}
}
