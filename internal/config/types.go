package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/ragd/internal/logging"
)

// Config is the top-level ragd configuration.
//
// All values are resolved once at startup with precedence
// environment variable > YAML config file > built-in default,
// and passed into constructors explicitly. Nothing reads the
// environment mid-pipeline.
type Config struct {
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Index      IndexConfig      `koanf:"index"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Generation GenerationConfig `koanf:"generation"`
	Feedback   FeedbackConfig   `koanf:"feedback"`
	Logging    logging.Config   `koanf:"logging"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	// Size is the target chunk size in characters.
	Size int `koanf:"size"`

	// Overlap is the number of trailing characters carried into the next chunk.
	Overlap int `koanf:"overlap"`
}

// IndexConfig controls the persisted vector index artifact.
type IndexConfig struct {
	// Path is the directory holding the persisted index.
	Path string `koanf:"path"`

	// Metric is the distance metric: "l2" or "ip".
	// Cosine similarity requires pre-normalized vectors under "ip".
	Metric string `koanf:"metric"`
}

// EmbeddingsConfig configures the embedding provider capability.
type EmbeddingsConfig struct {
	// BaseURL is the base URL of the embedding service.
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model identifier. Recorded in the index
	// manifest at build time so mismatches can be detected later.
	Model string `koanf:"model"`

	// APIKey is the optional bearer credential.
	APIKey string `koanf:"api_key"`

	// RateLimit is the maximum embed requests per second (0 = unlimited).
	RateLimit float64 `koanf:"rate_limit"`
}

// RetrievalConfig controls query-time candidate selection.
//
// Both top-k values are explicit configuration rather than hard-coded
// defaults; they interact (TopKRerank must not exceed TopKRetrieval).
type RetrievalConfig struct {
	// TopKRetrieval is the number of candidates fetched from the index.
	TopKRetrieval int `koanf:"top_k_retrieval"`

	// TopKRerank is the number of candidates kept after reranking.
	TopKRerank int `koanf:"top_k_rerank"`

	// RerankEnabled toggles the reranking stage.
	RerankEnabled bool `koanf:"rerank_enabled"`
}

// GenerationConfig configures the remote text-generation capability.
type GenerationConfig struct {
	// BaseURL is the chat-completions API base URL.
	BaseURL string `koanf:"base_url"`

	// APIKey is the bearer credential for the generation API.
	APIKey string `koanf:"api_key"`

	// Model is the generation model identifier.
	Model string `koanf:"model"`

	// Temperature is the sampling temperature.
	Temperature float64 `koanf:"temperature"`

	// MaxTokens bounds the generated output length.
	MaxTokens int `koanf:"max_tokens"`

	// Timeout bounds the remote call.
	Timeout time.Duration `koanf:"timeout"`

	// AppName is sent as the client-identifying header on every request.
	AppName string `koanf:"app_name"`
}

// FeedbackConfig configures the JSONL feedback sink.
type FeedbackConfig struct {
	// Path is the JSONL file feedback records are appended to.
	Path string `koanf:"path"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must be non-negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	switch c.Index.Metric {
	case "l2", "ip":
	default:
		return fmt.Errorf("index.metric must be \"l2\" or \"ip\", got %q", c.Index.Metric)
	}
	if c.Retrieval.TopKRetrieval <= 0 {
		return fmt.Errorf("retrieval.top_k_retrieval must be positive, got %d", c.Retrieval.TopKRetrieval)
	}
	if c.Retrieval.TopKRerank <= 0 {
		return fmt.Errorf("retrieval.top_k_rerank must be positive, got %d", c.Retrieval.TopKRerank)
	}
	if c.Retrieval.TopKRerank > c.Retrieval.TopKRetrieval {
		return fmt.Errorf("retrieval.top_k_rerank (%d) cannot exceed retrieval.top_k_retrieval (%d)",
			c.Retrieval.TopKRerank, c.Retrieval.TopKRetrieval)
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive, got %s", c.Generation.Timeout)
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens)
	}
	return c.Logging.Validate()
}
