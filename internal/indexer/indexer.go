// Package indexer builds the persisted vector index from a document corpus.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// ErrEmptyCorpus is returned when the source yields zero documents.
var ErrEmptyCorpus = errors.New("no documents found in corpus")

// embedBatchSize bounds the number of texts per embedding request.
const embedBatchSize = 32

// embedConcurrency bounds concurrent embedding requests during a build.
// Providers are possibly rate-limited external services.
const embedConcurrency = 4

// Builder orchestrates chunking, embedding and index construction.
type Builder struct {
	source   document.Source
	provider embeddings.Provider
	chunker  *chunker.Chunker
	metric   vectorstore.Metric
	model    string
	logger   *zap.Logger
}

// NewBuilder creates a Builder. The model identifier is recorded in the
// persisted manifest so a later load can detect a provider mismatch.
func NewBuilder(source document.Source, provider embeddings.Provider, ch *chunker.Chunker, metric vectorstore.Metric, model string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		source:   source,
		provider: provider,
		chunker:  ch,
		metric:   metric,
		model:    model,
		logger:   logger,
	}
}

// BuildStats summarizes a completed build.
type BuildStats struct {
	Documents int
	Chunks    int
	Dimension int
}

// Build loads the corpus, chunks and embeds it, and persists the index
// to persistDir. Build-time errors abort the whole build and leave no
// partial artifact behind: persistence happens last and is atomic from
// the caller's perspective.
func (b *Builder) Build(ctx context.Context, persistDir string) (*BuildStats, error) {
	docs, err := b.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	chunks := b.chunkAll(docs)
	b.logger.Info("corpus chunked",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)

	// Probe the provider once to size the index before embedding the corpus.
	dimension, err := embeddings.ProbeDimension(ctx, b.provider)
	if err != nil {
		return nil, fmt.Errorf("probing embedding dimension: %w", err)
	}

	index, err := vectorstore.NewIndex(dimension, b.metric, b.model)
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	vectors, err := b.embedAll(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}

	for i, chunk := range chunks {
		if err := index.Add(chunk, vectors[i]); err != nil {
			return nil, fmt.Errorf("adding chunk %s: %w", chunk.ID, err)
		}
	}

	if err := index.Save(persistDir); err != nil {
		return nil, fmt.Errorf("persisting index: %w", err)
	}

	b.logger.Info("index built",
		zap.String("path", persistDir),
		zap.Int("chunks", index.Len()),
		zap.Int("dimension", dimension),
		zap.String("metric", string(b.metric)),
		zap.String("model", b.model),
	)

	return &BuildStats{
		Documents: len(docs),
		Chunks:    index.Len(),
		Dimension: dimension,
	}, nil
}

// chunkAll splits every document, skipping chunks that are empty after
// trimming. Chunk IDs are {doc id}:{ordinal} and metadata is inherited
// from the parent document.
func (b *Builder) chunkAll(docs []document.Document) []vectorstore.Chunk {
	var chunks []vectorstore.Chunk
	for _, doc := range docs {
		segments := b.chunker.Split(doc.Text)
		ordinal := 0
		for _, segment := range segments {
			if strings.TrimSpace(segment) == "" {
				continue
			}
			chunks = append(chunks, vectorstore.Chunk{
				ID:       doc.ID + ":" + strconv.Itoa(ordinal),
				DocID:    doc.ID,
				DocName:  doc.Name,
				Ordinal:  ordinal,
				Text:     segment,
				Metadata: doc.Metadata,
			})
			ordinal++
		}
	}
	return chunks
}

// embedAll embeds all chunks in bounded-parallel batches. Each batch
// writes into an explicitly indexed span of the result slice, so the
// chunk-to-vector correspondence cannot drift across batches.
func (b *Builder) embedAll(ctx context.Context, chunks []vectorstore.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = chunks[i].Text
			}
			batch, err := b.provider.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("batch [%d:%d]: %w", start, end, err)
			}
			for i, vec := range batch {
				vectors[start+i] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
