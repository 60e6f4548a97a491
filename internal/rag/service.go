// Package rag orchestrates the query-time pipeline: retrieve, rerank,
// assemble, generate.
package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/answer"
	"github.com/fyrsmithlabs/ragd/internal/reranker"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// Options controls query-time candidate selection.
type Options struct {
	// TopKRetrieval is the number of candidates fetched from the index.
	TopKRetrieval int

	// TopKRerank is the number of candidates kept after reranking.
	// Must not exceed TopKRetrieval.
	TopKRerank int

	// RerankEnabled toggles the reranking stage.
	RerankEnabled bool
}

// Validate validates the options.
func (o Options) Validate() error {
	if o.TopKRetrieval <= 0 {
		return fmt.Errorf("top_k_retrieval must be positive, got %d", o.TopKRetrieval)
	}
	if o.RerankEnabled && o.TopKRerank > o.TopKRetrieval {
		return fmt.Errorf("top_k_rerank (%d) cannot exceed top_k_retrieval (%d)", o.TopKRerank, o.TopKRetrieval)
	}
	return nil
}

// Answer is the outcome of one query.
type Answer struct {
	// Text is the generated answer, or the fixed refusal string.
	Text string

	// Sources are the candidates that grounded the answer, in the
	// order they were presented to the model.
	Sources []vectorstore.Candidate

	// Refused reports that no grounding evidence existed and the
	// fixed refusal string was returned without a remote call.
	Refused bool
}

// QueryError reports a single failed query with the stage that failed.
// Candidates retrieved before the failure remain available so callers
// can still display sources (and file feedback) for a failed generation.
type QueryError struct {
	// Stage is the pipeline stage that failed: retrieve, rerank, generate.
	Stage string

	// Sources holds candidates retrieved before the failure, if any.
	Sources []vectorstore.Candidate

	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed at %s stage: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Service answers questions against the persisted index.
type Service struct {
	cache     *retriever.Cache
	scorer    reranker.Scorer
	generator *answer.Generator
	opts      Options
	logger    *zap.Logger
}

// NewService creates the query-time service. scorer may be nil when
// reranking is disabled.
func NewService(cache *retriever.Cache, scorer reranker.Scorer, generator *answer.Generator, opts Options, logger *zap.Logger) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating options: %w", err)
	}
	if opts.RerankEnabled && scorer == nil {
		return nil, fmt.Errorf("reranking enabled but no scorer configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:     cache,
		scorer:    scorer,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Ask runs the full query pipeline for one question.
//
// Queries mutate no shared state; the loaded index is read-only and
// shared across concurrent calls. A failure at any stage aborts only
// this query and is returned as *QueryError naming the stage.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	r, err := s.cache.Get(ctx)
	if err != nil {
		return nil, &QueryError{Stage: "retrieve", Err: err}
	}

	candidates, err := r.Retrieve(ctx, question, s.opts.TopKRetrieval)
	if err != nil {
		return nil, &QueryError{Stage: "retrieve", Err: err}
	}
	s.logger.Debug("retrieved candidates",
		zap.String("question", question),
		zap.Int("count", len(candidates)),
	)

	if s.opts.RerankEnabled && len(candidates) > 0 {
		reranked, err := reranker.Rerank(ctx, s.scorer, question, candidates, s.opts.TopKRerank)
		if err != nil {
			return nil, &QueryError{Stage: "rerank", Err: err, Sources: candidates}
		}
		candidates = reranked
	}

	bundle := answer.Assemble(candidates)
	if bundle.Empty() {
		s.logger.Info("no grounding evidence, refusing", zap.String("question", question))
		return &Answer{Text: answer.Refusal, Refused: true}, nil
	}

	text, err := s.generator.Generate(ctx, question, bundle)
	if err != nil {
		return nil, &QueryError{Stage: "generate", Err: err, Sources: candidates}
	}

	return &Answer{
		Text:    text,
		Sources: candidates,
		Refused: text == answer.Refusal,
	}, nil
}
