// Package config provides configuration loading for ragd.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RAGD_"

// Load loads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RAGD_GENERATION_API_KEY, RAGD_INDEX_PATH, ...)
//  2. YAML config file (configPath, skipped when empty or absent)
//  3. Hardcoded defaults
//
// Environment variables are mapped section-first: the first underscore
// after the prefix separates the section from the field name.
//
//	RAGD_INDEX_PATH            -> index.path
//	RAGD_GENERATION_API_KEY    -> generation.api_key
//	RAGD_RETRIEVAL_TOP_K_RERANK -> retrieval.top_k_rerank
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// RAGD_GENERATION_API_KEY -> generation.api_key
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg, k)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
// Zero is a valid setting for chunking.overlap and generation.temperature,
// so those two fall back to their defaults only when the key was never
// set by the file or the environment.
func applyDefaults(cfg *Config, k *koanf.Koanf) {
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 && !k.Exists("chunking.overlap") {
		cfg.Chunking.Overlap = 50
	}

	if cfg.Index.Path == "" {
		cfg.Index.Path = "db/index"
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "ip"
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.Retrieval.TopKRetrieval == 0 {
		cfg.Retrieval.TopKRetrieval = 10
	}
	if cfg.Retrieval.TopKRerank == 0 {
		cfg.Retrieval.TopKRerank = 2
	}

	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "meta-llama/llama-3-8b-instruct"
	}
	if cfg.Generation.Temperature == 0 && !k.Exists("generation.temperature") {
		cfg.Generation.Temperature = 0.3
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 768
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 90 * time.Second
	}
	if cfg.Generation.AppName == "" {
		cfg.Generation.AppName = "ragd"
	}

	if cfg.Feedback.Path == "" {
		cfg.Feedback.Path = "logs/queries.jsonl"
	}

	cfg.Logging.ApplyDefaults()
}
