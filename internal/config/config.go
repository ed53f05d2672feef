package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FieldConfig describes one field of the Milvus collection schema.
type FieldConfig struct {
	Name         string `yaml:"name"`
	DataType     string `yaml:"dataType"` // "Int64", "VarChar", "FloatVector"
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`
	IsAutoID     bool   `yaml:"isAutoID"`
	Dim          int    `yaml:"dim,omitempty"`       // vector types only
	MaxLength    int    `yaml:"maxLength,omitempty"` // VarChar only
}

// IndexConfig describes the vector index built over the embedding field.
type IndexConfig struct {
	FieldName  string                 `yaml:"fieldName"`
	IndexType  string                 `yaml:"indexType"`  // "HNSW", "IVF_FLAT", "AUTOINDEX"
	MetricType string                 `yaml:"metricType"` // "COSINE", "L2", "IP"
	Params     map[string]interface{} `yaml:"params"`
}

// SchemaConfig describes the Milvus collection layout.
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"`
	Description    string        `yaml:"description"`
	VectorField    string        `yaml:"vectorField"`
	Fields         []FieldConfig `yaml:"fields"`
	Index          IndexConfig   `yaml:"index"`
}

// MilvusConfig holds the Milvus connection address and collection schema.
type MilvusConfig struct {
	Address string       `yaml:"address"`
	Schema  SchemaConfig `yaml:"schema"`
	// SearchEf is the HNSW search breadth (ef) used for queries.
	SearchEf int `yaml:"searchEf"`
}

// ProviderConfig holds the credentials and model name for one embedding provider.
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL,omitempty"`
}

// EmbeddingConfig selects the embedding provider and its settings.
type EmbeddingConfig struct {
	Provider    string         `yaml:"provider"` // "huggingface", "ollama", "openai", "google"
	HuggingFace ProviderConfig `yaml:"huggingface"`
	Ollama      ProviderConfig `yaml:"ollama"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Google      ProviderConfig `yaml:"google"`
}

// FetcherConfig controls the HTTP fetcher and the headless-render fallback.
type FetcherConfig struct {
	TimeoutSeconds       int  `yaml:"timeoutSeconds"`
	MaxRetries           int  `yaml:"maxRetries"`
	RenderFallback       bool `yaml:"renderFallback"`
	RenderTimeoutSeconds int  `yaml:"renderTimeoutSeconds"`
}

// SearchConfig controls chunking and retrieval behavior.
type SearchConfig struct {
	MaxTokensPerChunk int `yaml:"maxTokensPerChunk"`
	TopK              int `yaml:"topK"`
	// RestrictToURL limits the ANN search to rows whose url matches the request.
	// When false the search scans the whole collection, which is how the
	// service originally behaved.
	RestrictToURL bool `yaml:"restrictToUrl"`
	// FailOnReindexError makes /search return an error when the mandatory
	// re-index step fails instead of searching whatever rows already exist.
	FailOnReindexError bool `yaml:"failOnReindexError"`
}

// ServerConfig holds the HTTP listen address and CORS policy.
type ServerConfig struct {
	Address     string   `yaml:"address"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// AppInfo carries basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggerConfig sets the log level.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Search    SearchConfig    `yaml:"search"`
	Milvus    MilvusConfig    `yaml:"milvus"`
}

// EmbeddingDim is the vector dimension produced by the default model
// (all-MiniLM-L6-v2).
const EmbeddingDim = 384

// Default returns the configuration used when no YAML file is present.
func Default() *AppConfig {
	return &AppConfig{
		App:    AppInfo{Name: "html-semantic-search", Version: "dev", Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Address:     ":8080",
			CORSOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
		Embedding: EmbeddingConfig{
			Provider:    "huggingface",
			HuggingFace: ProviderConfig{Model: "sentence-transformers/all-MiniLM-L6-v2"},
			Ollama:      ProviderConfig{Model: "nomic-embed-text"},
			OpenAI:      ProviderConfig{Model: "text-embedding-3-small"},
			Google:      ProviderConfig{Model: "text-embedding-004"},
		},
		Fetcher: FetcherConfig{
			TimeoutSeconds:       12,
			MaxRetries:           2,
			RenderFallback:       true,
			RenderTimeoutSeconds: 15,
		},
		Search: SearchConfig{
			MaxTokensPerChunk:  500,
			TopK:               10,
			RestrictToURL:      true,
			FailOnReindexError: true,
		},
		Milvus: MilvusConfig{
			Address:  "localhost:19530",
			SearchEf: 64,
			Schema: SchemaConfig{
				CollectionName: "html_chunks",
				Description:    "HTML chunks with embeddings",
				VectorField:    "embedding",
				Fields: []FieldConfig{
					{Name: "id", DataType: "Int64", IsPrimaryKey: true, IsAutoID: true},
					{Name: "url", DataType: "VarChar", MaxLength: 2048},
					{Name: "chunk", DataType: "VarChar", MaxLength: 8192},
					{Name: "embedding", DataType: "FloatVector", Dim: EmbeddingDim},
				},
				Index: IndexConfig{
					FieldName:  "embedding",
					IndexType:  "HNSW",
					MetricType: "COSINE",
					Params:     map[string]interface{}{"M": 8, "efConstruction": 64},
				},
			},
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults and then
// applies environment overrides. A missing file is not an error; the defaults
// plus environment are used instead.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := Default()

	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the environment override the most commonly tuned options.
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		switch c.Embedding.Provider {
		case "ollama":
			c.Embedding.Ollama.Model = v
		case "openai":
			c.Embedding.OpenAI.Model = v
		case "google":
			c.Embedding.Google.Model = v
		default:
			c.Embedding.HuggingFace.Model = v
		}
	}
	if v := os.Getenv("HUGGINGFACE_API_KEY"); v != "" {
		c.Embedding.HuggingFace.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embedding.OpenAI.APIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Embedding.Google.APIKey = v
	}
	if v := os.Getenv("MILVUS_ADDRESS"); v != "" {
		c.Milvus.Address = v
	}
	if host := os.Getenv("MILVUS_HOST"); host != "" {
		port := os.Getenv("MILVUS_PORT")
		if port == "" {
			port = "19530"
		}
		c.Milvus.Address = host + ":" + port
	}
	if v := os.Getenv("MILVUS_COLLECTION"); v != "" {
		c.Milvus.Schema.CollectionName = v
	}
	if v, err := strconv.Atoi(os.Getenv("MAX_TOKENS_PER_CHUNK")); err == nil && v > 0 {
		c.Search.MaxTokensPerChunk = v
	}
	if v, err := strconv.Atoi(os.Getenv("TOP_K")); err == nil && v > 0 {
		c.Search.TopK = v
	}
}
