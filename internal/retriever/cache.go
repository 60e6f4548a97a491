package retriever

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// Cache memoizes the expensive Retriever load keyed by the persisted
// artifact's fingerprint. The fingerprint is cheap and recomputed on
// every acquisition, so a rebuilt artifact is picked up on the next
// call without staleness heuristics.
type Cache struct {
	dir             string
	provider        embeddings.Provider
	configuredModel string
	logger          *zap.Logger

	mu          sync.Mutex
	fingerprint string
	retriever   *Retriever
}

// NewCache creates a retriever cache for the artifact at dir.
func NewCache(dir string, provider embeddings.Provider, configuredModel string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		dir:             dir,
		provider:        provider,
		configuredModel: configuredModel,
		logger:          logger,
	}
}

// Get returns a Retriever for the current artifact, loading it when the
// artifact changed since the last acquisition.
func (c *Cache) Get(ctx context.Context) (*Retriever, error) {
	fingerprint, err := vectorstore.Fingerprint(c.dir)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retriever != nil && c.fingerprint == fingerprint {
		return c.retriever, nil
	}

	if c.retriever != nil {
		c.logger.Info("index artifact changed, reloading", zap.String("path", c.dir))
	}

	r, err := Load(ctx, c.dir, c.provider, c.configuredModel, c.logger)
	if err != nil {
		return nil, err
	}

	c.fingerprint = fingerprint
	c.retriever = r
	return r, nil
}
