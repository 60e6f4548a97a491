// Package reranker provides second-pass relevance scoring of retrieved candidates.
package reranker

import (
	"context"
	"fmt"
	"sort"

	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// Scorer is the reranking capability: a joint query-document relevance
// model. Higher scores mean more relevant, regardless of the metric used
// by the upstream retrieval stage.
type Scorer interface {
	// Score computes the relevance of text to query.
	Score(ctx context.Context, query, text string) (float32, error)
}

// Rerank rescores candidates with the scorer and returns the topK most
// relevant, sorted by rerank score descending. It is a pure
// reordering/filtering stage: no chunk absent from the input is ever
// introduced, ties keep their original rank order (stable), and an empty
// input yields an empty output.
//
// The returned candidates carry the rerank score, replacing the
// retrieval score; rerank scores always sort descending.
func Rerank(ctx context.Context, scorer Scorer, query string, candidates []vectorstore.Candidate, topK int) ([]vectorstore.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	type ranked struct {
		candidate    vectorstore.Candidate
		score        float32
		originalRank int
	}

	all := make([]ranked, len(candidates))
	for i, c := range candidates {
		score, err := scorer.Score(ctx, query, c.Chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("scoring candidate %s: %w", c.Chunk.ID, err)
		}
		all[i] = ranked{candidate: c, score: score, originalRank: i}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].originalRank < all[j].originalRank
	})

	results := make([]vectorstore.Candidate, topK)
	for i := 0; i < topK; i++ {
		results[i] = vectorstore.Candidate{
			Chunk: all[i].candidate.Chunk,
			Score: all[i].score,
		}
	}
	return results, nil
}
