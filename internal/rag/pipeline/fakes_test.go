package pipeline

import (
	"context"
	"sync"

	"htmlsearch/internal/rag/schema"
	"htmlsearch/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New("pipeline-test", "")
}

// fakeFetcher returns canned HTML or an error.
type fakeFetcher struct {
	html string
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

// fakeEmbedder produces deterministic vectors: each text maps to a vector
// whose first component is its rune length.
type fakeEmbedder struct {
	err   error
	calls int
	dim   int
}

func (e *fakeEmbedder) embedOne(text string) []float32 {
	dim := e.dim
	if dim == 0 {
		dim = 4
	}
	vec := make([]float32, dim)
	vec[0] = float32(len([]rune(text)))
	vec[1] = 1
	return vec
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = e.embedOne(text)
	}
	return vecs, nil
}

// fakeStore keeps rows in memory keyed by URL so replacement semantics can
// be asserted. Individual operations can be made to fail.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string][]*schema.Document

	deleteErr error
	addErr    error
	flushErr  error
	searchErr error

	searchResults []*schema.Document
	lastTopK      int
	lastURLFilter string
	searchCalls   int
	flushCalls    int
	deleteCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string][]*schema.Document)}
}

func (s *fakeStore) Add(ctx context.Context, docs []*schema.Document) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.rows[doc.URL] = append(s.rows[doc.URL], doc)
	}
	return nil
}

func (s *fakeStore) DeleteByURL(ctx context.Context, url string) error {
	s.deleteCalls++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, url)
	return nil
}

func (s *fakeStore) Search(ctx context.Context, vector []float32, topK int, urlFilter string) ([]*schema.Document, error) {
	s.searchCalls++
	s.lastTopK = topK
	s.lastURLFilter = urlFilter
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResults, nil
}

func (s *fakeStore) Flush(ctx context.Context) error {
	s.flushCalls++
	return s.flushErr
}

func (s *fakeStore) rowCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[url])
}
