package service

import (
	"context"
	"time"

	"htmlsearch/internal/config"
	"htmlsearch/internal/database/milvus"
	"htmlsearch/internal/embedding"
	"htmlsearch/internal/rag/fetcher"
	"htmlsearch/internal/rag/interfaces"
	"htmlsearch/internal/rag/pipeline"
	"htmlsearch/internal/rag/schema"
	"htmlsearch/internal/rag/splitters"
	"htmlsearch/internal/rag/storages/vectorstore"
	"htmlsearch/pkg/logger"
)

// Service wires the indexing and retrieval pipelines for the HTTP layer.
// The embedding client and Milvus connection are created once at startup
// and shared across requests; everything else is stateless.
type Service struct {
	indexing  *pipeline.IndexingPipeline
	retrieval *pipeline.RetrievalPipeline
	log       *logger.Logger
}

// New builds the Service from configuration and the shared clients.
func New(cfg *config.AppConfig, embedder embedding.Embedding, milvusClient *milvus.MilvusClient, log *logger.Logger) (*Service, error) {
	store, err := vectorstore.NewMilvusStore(milvusClient, cfg.Milvus.Schema.CollectionName, cfg.Milvus.SearchEf, log)
	if err != nil {
		return nil, err
	}

	var renderer interfaces.Renderer
	if cfg.Fetcher.RenderFallback {
		renderer = fetcher.NewChromeRenderer(time.Duration(cfg.Fetcher.RenderTimeoutSeconds) * time.Second)
	}
	httpFetcher := fetcher.NewHTTPFetcher(
		time.Duration(cfg.Fetcher.TimeoutSeconds)*time.Second,
		cfg.Fetcher.MaxRetries,
		renderer,
		log,
	)

	indexing := pipeline.NewIndexingPipeline(
		httpFetcher,
		splitters.NewWordSplitter(),
		embedder,
		store,
		cfg.Search.MaxTokensPerChunk,
		log,
	)
	retrieval := pipeline.NewRetrievalPipeline(
		indexing,
		embedder,
		store,
		pipeline.RetrievalOptions{
			TopK:               cfg.Search.TopK,
			RestrictToURL:      cfg.Search.RestrictToURL,
			FailOnReindexError: cfg.Search.FailOnReindexError,
		},
		log,
	)

	return &Service{indexing: indexing, retrieval: retrieval, log: log}, nil
}

// IndexURL (re)indexes one URL and returns the number of chunks stored.
func (s *Service) IndexURL(ctx context.Context, url string) (int, error) {
	return s.indexing.Index(ctx, url)
}

// Search re-indexes the URL and returns the chunks most similar to query,
// ordered by score descending.
func (s *Service) Search(ctx context.Context, url, query string) ([]*schema.Document, error) {
	return s.retrieval.Search(ctx, url, query)
}
