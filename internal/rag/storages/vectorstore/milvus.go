package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"htmlsearch/internal/database/milvus"
	"htmlsearch/internal/rag/interfaces"
	"htmlsearch/internal/rag/schema"
	"htmlsearch/pkg/logger"
)

// Schema fields of the Milvus collection.
const (
	FieldID        = "id"
	FieldURL       = "url"
	FieldChunk     = "chunk"
	FieldEmbedding = "embedding"
)

// StoreError wraps a failed vector store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MilvusStore implements the VectorStore interface on top of the shared
// Milvus client wrapper.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	searchEf   int
}

// NewMilvusStore creates a MilvusStore over the given collection.
func NewMilvusStore(milvusClient *milvus.MilvusClient, collectionName string, searchEf int, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if searchEf <= 0 {
		searchEf = 64
	}
	return &MilvusStore{
		log:        log,
		client:     milvusClient.Client,
		collection: collectionName,
		searchEf:   searchEf,
	}, nil
}

// Add inserts one row per document: url, chunk text, and embedding. The id
// column is auto-generated by the collection.
func (s *MilvusStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	urls := make([]string, len(docs))
	chunks := make([]string, len(docs))
	embeddings := make([][]float32, len(docs))
	for i, doc := range docs {
		urls[i] = doc.URL
		chunks[i] = doc.Chunk
		embeddings[i] = doc.Embedding
	}
	dim := len(embeddings[0])

	urlCol := entity.NewColumnVarChar(FieldURL, urls)
	chunkCol := entity.NewColumnVarChar(FieldChunk, chunks)
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings)

	s.log.Info(fmt.Sprintf("inserting %d rows into collection %s", len(docs), s.collection))
	if _, err := s.client.Insert(ctx, s.collection, "" /* default partition */, urlCol, chunkCol, embeddingCol); err != nil {
		return &StoreError{Op: "insert", Err: err}
	}
	return nil
}

// DeleteByURL removes every row whose url equals the given string.
func (s *MilvusStore) DeleteByURL(ctx context.Context, url string) error {
	expr := fmt.Sprintf("%s == '%s'", FieldURL, escapeExprValue(url))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// Search runs an ANN query and returns documents with their similarity
// scores. Vectors are stored normalized under the COSINE metric, so scores
// are cosine similarities.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, urlFilter string) ([]*schema.Document, error) {
	expr := ""
	if urlFilter != "" {
		expr = fmt.Sprintf("%s == '%s'", FieldURL, escapeExprValue(urlFilter))
	}

	sp, err := entity.NewIndexHNSWSearchParam(s.searchEf)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}

	results, err := s.client.Search(
		ctx, s.collection, []string{}, expr,
		[]string{FieldChunk, FieldURL},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}

	var docs []*schema.Document
	for _, res := range results {
		chunkCol, _ := findColumn(res.Fields, FieldChunk).(*entity.ColumnVarChar)
		urlCol, _ := findColumn(res.Fields, FieldURL).(*entity.ColumnVarChar)
		if chunkCol == nil || urlCol == nil {
			s.log.Warn("search result is missing chunk or url column, skipping")
			continue
		}
		chunkData := chunkCol.Data()
		urlData := urlCol.Data()

		for i := 0; i < res.ResultCount; i++ {
			docs = append(docs, &schema.Document{
				URL:   urlData[i],
				Chunk: chunkData[i],
				Score: res.Scores[i],
			})
		}
	}

	return docs, nil
}

// Flush makes inserted rows visible to subsequent searches.
func (s *MilvusStore) Flush(ctx context.Context) error {
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return &StoreError{Op: "flush", Err: err}
	}
	return nil
}

func findColumn(fields []entity.Column, name string) entity.Column {
	for _, field := range fields {
		if field.Name() == name {
			return field
		}
	}
	return nil
}

// escapeExprValue escapes a string for interpolation into a Milvus filter
// expression so URLs containing quotes or backslashes cannot break out of
// the quoted literal.
func escapeExprValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

// compile-time check
var _ interfaces.VectorStore = (*MilvusStore)(nil)
