// Package embeddings provides embedding generation for indexing and queries.
package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider generates vector embeddings from text.
//
// All vectors returned by one provider instance share a fixed dimension.
// Implementations can call a local model server or a cloud API; providers
// are possibly rate-limited external services, so callers must not assume
// unlimited concurrent calls.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// The result is order-preserving: one vector per input text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// probeText is a constant input used to learn a provider's output
// dimension before allocating index structures.
const probeText = "dimension probe"

// ProbeDimension embeds a constant probe string and returns the length
// of the resulting vector.
func ProbeDimension(ctx context.Context, p Provider) (int, error) {
	vec, err := p.EmbedQuery(ctx, probeText)
	if err != nil {
		return 0, err
	}
	if len(vec) == 0 {
		return 0, ErrEmbeddingFailed
	}
	return len(vec), nil
}
