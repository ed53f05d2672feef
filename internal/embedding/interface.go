package embedding

import (
	"context"
	"errors"
	"fmt"

	"htmlsearch/internal/config"
)

// ErrNoEmbeddings is returned when a provider responds without any vectors.
var ErrNoEmbeddings = errors.New("no embeddings returned")

// Embedding is the interface every embedding provider implements. The model
// behind it is treated as an opaque function from text to a fixed-dimension
// vector; instances are safe for concurrent use.
type Embedding interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelType enumerates the supported providers.
type ModelType string

const (
	HuggingFace ModelType = "huggingface"
	Ollama      ModelType = "ollama"
	OpenAI      ModelType = "openai"
	Google      ModelType = "google"
)

// New builds the embedding client selected by the configuration.
func New(cfg *config.EmbeddingConfig) (Embedding, error) {
	switch ModelType(cfg.Provider) {
	case HuggingFace:
		return NewHuggingFaceModel(cfg.HuggingFace.APIKey, cfg.HuggingFace.Model, cfg.HuggingFace.BaseURL)
	case Ollama:
		return NewOllamaModel(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	case OpenAI:
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case Google:
		return NewGoogleModel(cfg.Google.APIKey, cfg.Google.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
