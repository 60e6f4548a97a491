// Package retriever loads the persisted index and serves similarity queries.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// Retriever answers queries against a loaded vector index.
//
// The index is read-only after load, so a single Retriever may serve
// concurrent queries. Queries mutate no shared state; abandoning one at
// any stage is safe and needs no rollback.
type Retriever struct {
	index    *vectorstore.Index
	provider embeddings.Provider
	logger   *zap.Logger
}

// Load restores a persisted index from dir and validates it against the
// embedding provider: the provider is probed once and its output
// dimension must equal the stored vector dimension. A mismatch is
// reported as vectorstore.ErrDimensionMismatch, never silently adjusted.
//
// The configuredModel is the embedding model the caller intends to query
// with; when it differs from the model recorded at build time the
// mismatch is logged, since mixed models silently degrade quality.
func Load(ctx context.Context, dir string, provider embeddings.Provider, configuredModel string, logger *zap.Logger) (*Retriever, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index, err := vectorstore.LoadIndex(dir)
	if err != nil {
		return nil, err
	}

	dimension, err := embeddings.ProbeDimension(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("probing embedding provider: %w", err)
	}
	if dimension != index.Dimension() {
		return nil, fmt.Errorf("%w: index stores %d-dimensional vectors, provider produces %d",
			vectorstore.ErrDimensionMismatch, index.Dimension(), dimension)
	}

	if configuredModel != "" && index.Model() != "" && configuredModel != index.Model() {
		logger.Warn("embedding model differs from index build",
			zap.String("index_model", index.Model()),
			zap.String("configured_model", configuredModel),
		)
	}

	logger.Info("index loaded",
		zap.String("path", dir),
		zap.Int("chunks", index.Len()),
		zap.Int("dimension", index.Dimension()),
		zap.String("metric", string(index.Metric())),
	)

	return &Retriever{
		index:    index,
		provider: provider,
		logger:   logger,
	}, nil
}

// Index returns the underlying loaded index.
func (r *Retriever) Index() *vectorstore.Index { return r.index }

// Retrieve embeds the query and returns the topK nearest candidates,
// most similar first under the index metric. An empty index yields an
// empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]vectorstore.Candidate, error) {
	if r.index.Len() == 0 {
		return nil, nil
	}

	vec, err := r.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.index.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return candidates, nil
}
