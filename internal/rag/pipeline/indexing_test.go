package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"htmlsearch/internal/rag/fetcher"
	"htmlsearch/internal/rag/splitters"
)

const testPage = "<html><body><p>Hello world. This is a test page with exactly ten words total here.</p></body></html>"

func newIndexingPipeline(f *fakeFetcher, e *fakeEmbedder, s *fakeStore, maxTokens int) *IndexingPipeline {
	return NewIndexingPipeline(f, splitters.NewWordSplitter(), e, s, maxTokens, testLogger())
}

func TestIndexHappyPath(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	p := newIndexingPipeline(&fakeFetcher{html: testPage}, embedder, store, 5)

	n, err := p.Index(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Index() = %d chunks, want 3", n)
	}
	if got := store.rowCount("https://example.com/page"); got != 3 {
		t.Errorf("store holds %d rows, want 3", got)
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1 batched call", embedder.calls)
	}
	if store.flushCalls != 1 {
		t.Errorf("flush called %d times, want 1", store.flushCalls)
	}
}

func TestIndexStoresUnitVectors(t *testing.T) {
	store := newFakeStore()
	p := newIndexingPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, 5)

	if _, err := p.Index(context.Background(), "https://example.com/page"); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	for i, doc := range store.rows["https://example.com/page"] {
		var sum float64
		for _, v := range doc.Embedding {
			sum += float64(v) * float64(v)
		}
		if norm := math.Sqrt(sum); math.Abs(norm-1.0) > 1e-5 {
			t.Errorf("stored vector %d has norm %v, want 1.0", i, norm)
		}
	}
}

func TestIndexEmptyPageShortCircuits(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	p := newIndexingPipeline(&fakeFetcher{html: "<body></body>"}, embedder, store, 5)

	n, err := p.Index(context.Background(), "https://example.com/empty")
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Index() = %d, want 0", n)
	}
	if embedder.calls != 0 {
		t.Error("embedder must not be called for an empty page")
	}
	if store.deleteCalls != 0 {
		t.Error("store must not be touched for an empty page")
	}
}

func TestIndexIsIdempotentSequentially(t *testing.T) {
	store := newFakeStore()
	p := newIndexingPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, 5)
	url := "https://example.com/page"

	first, err := p.Index(context.Background(), url)
	if err != nil {
		t.Fatalf("first Index() error = %v", err)
	}
	second, err := p.Index(context.Background(), url)
	if err != nil {
		t.Fatalf("second Index() error = %v", err)
	}

	if first != second {
		t.Errorf("chunk counts differ across identical runs: %d vs %d", first, second)
	}
	if got := store.rowCount(url); got != first {
		t.Errorf("store holds %d rows after re-index, want %d (not doubled)", got, first)
	}
}

func TestIndexSwallowsDeleteFailure(t *testing.T) {
	store := newFakeStore()
	store.deleteErr = errors.New("delete timed out")
	p := newIndexingPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, 5)

	n, err := p.Index(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("Index() must proceed past a failed delete, got error %v", err)
	}
	if n != 3 {
		t.Errorf("Index() = %d, want 3", n)
	}
}

func TestIndexFetchFailure(t *testing.T) {
	fetchErr := &fetcher.FetchError{URL: "https://example.com/x", Err: errors.New("connection refused")}
	p := newIndexingPipeline(&fakeFetcher{err: fetchErr}, &fakeEmbedder{}, newFakeStore(), 5)

	_, err := p.Index(context.Background(), "https://example.com/x")

	var indexErr *IndexError
	if !errors.As(err, &indexErr) {
		t.Fatalf("expected *IndexError, got %v", err)
	}
	if indexErr.Stage != "fetch failed" {
		t.Errorf("Stage = %q, want %q", indexErr.Stage, "fetch failed")
	}
	var unwrapped *fetcher.FetchError
	if !errors.As(err, &unwrapped) {
		t.Errorf("fetch cause not preserved in chain: %v", err)
	}
}

func TestIndexEmbeddingFailure(t *testing.T) {
	store := newFakeStore()
	p := newIndexingPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{err: errors.New("model unavailable")}, store, 5)

	_, err := p.Index(context.Background(), "https://example.com/page")

	var indexErr *IndexError
	if !errors.As(err, &indexErr) {
		t.Fatalf("expected *IndexError, got %v", err)
	}
	if indexErr.Stage != "embedding failed" {
		t.Errorf("Stage = %q, want %q", indexErr.Stage, "embedding failed")
	}
	if store.deleteCalls != 0 {
		t.Error("store must not be touched when embedding fails")
	}
}

func TestIndexStoreInsertFailure(t *testing.T) {
	store := newFakeStore()
	store.addErr = errors.New("insert rejected")
	p := newIndexingPipeline(&fakeFetcher{html: testPage}, &fakeEmbedder{}, store, 5)

	_, err := p.Index(context.Background(), "https://example.com/page")

	var indexErr *IndexError
	if !errors.As(err, &indexErr) {
		t.Fatalf("expected *IndexError, got %v", err)
	}
	if !strings.Contains(indexErr.Stage, "store insert") {
		t.Errorf("Stage = %q, want store insert failure", indexErr.Stage)
	}
}
