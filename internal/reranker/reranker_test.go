package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// mapScorer scores chunks by a fixed text-to-score table.
type mapScorer struct {
	scores map[string]float32
	err    error
}

func (m *mapScorer) Score(_ context.Context, _ string, text string) (float32, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.scores[text], nil
}

func candidate(id, text string, score float32) vectorstore.Candidate {
	return vectorstore.Candidate{
		Chunk: vectorstore.Chunk{ID: id, Text: text},
		Score: score,
	}
}

func TestRerankEmptyInput(t *testing.T) {
	results, err := Rerank(context.Background(), &mapScorer{}, "q", nil, 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRerankOrdersByScoreDescending(t *testing.T) {
	candidates := []vectorstore.Candidate{
		candidate("a", "low", 0.9),
		candidate("b", "high", 0.8),
		candidate("c", "mid", 0.7),
	}
	scorer := &mapScorer{scores: map[string]float32{"low": 0.1, "high": 0.9, "mid": 0.5}}

	results, err := Rerank(context.Background(), scorer, "q", candidates, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "b", results[0].Chunk.ID)
	require.Equal(t, "c", results[1].Chunk.ID)
	require.Equal(t, "a", results[2].Chunk.ID)

	// Rerank scores replace retrieval scores.
	require.Equal(t, float32(0.9), results[0].Score)
}

func TestRerankSubsetOfInput(t *testing.T) {
	candidates := []vectorstore.Candidate{
		candidate("a", "one", 0),
		candidate("b", "two", 0),
		candidate("c", "three", 0),
	}
	scorer := &mapScorer{scores: map[string]float32{"one": 0.2, "two": 0.8, "three": 0.5}}

	results, err := Rerank(context.Background(), scorer, "q", candidates, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	inputIDs := map[string]bool{"a": true, "b": true, "c": true}
	for _, r := range results {
		require.True(t, inputIDs[r.Chunk.ID], "reranker must not introduce chunks")
	}
}

func TestRerankTiesKeepOriginalOrder(t *testing.T) {
	candidates := []vectorstore.Candidate{
		candidate("first", "same", 0),
		candidate("second", "same", 0),
		candidate("third", "same", 0),
	}
	scorer := &mapScorer{scores: map[string]float32{"same": 0.5}}

	for i := 0; i < 5; i++ {
		results, err := Rerank(context.Background(), scorer, "q", candidates, 3)
		require.NoError(t, err)
		require.Equal(t, "first", results[0].Chunk.ID)
		require.Equal(t, "second", results[1].Chunk.ID)
		require.Equal(t, "third", results[2].Chunk.ID)
	}
}

func TestRerankTopKClamped(t *testing.T) {
	candidates := []vectorstore.Candidate{candidate("a", "one", 0)}
	scorer := &mapScorer{scores: map[string]float32{"one": 1}}

	results, err := Rerank(context.Background(), scorer, "q", candidates, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = Rerank(context.Background(), scorer, "q", candidates, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestRerankIdempotent(t *testing.T) {
	candidates := []vectorstore.Candidate{
		candidate("a", "one", 0),
		candidate("b", "two", 0),
	}
	scorer := &mapScorer{scores: map[string]float32{"one": 0.3, "two": 0.7}}

	once, err := Rerank(context.Background(), scorer, "q", candidates, 2)
	require.NoError(t, err)
	twice, err := Rerank(context.Background(), scorer, "q", once, 2)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestRerankScorerError(t *testing.T) {
	wantErr := errors.New("scorer offline")
	_, err := Rerank(context.Background(), &mapScorer{err: wantErr}, "q",
		[]vectorstore.Candidate{candidate("a", "one", 0)}, 1)
	require.ErrorIs(t, err, wantErr)
}

func TestTermOverlapScore(t *testing.T) {
	scorer := NewTermOverlap()

	full, err := scorer.Score(context.Background(), "pump lubrication schedule",
		"The pump lubrication schedule requires weekly service.")
	require.NoError(t, err)
	require.Equal(t, float32(1), full)

	partial, err := scorer.Score(context.Background(), "pump lubrication schedule",
		"The pump is painted green.")
	require.NoError(t, err)
	require.InDelta(t, 1.0/3.0, partial, 1e-6)

	none, err := scorer.Score(context.Background(), "pump lubrication schedule",
		"Invoices are due monthly.")
	require.NoError(t, err)
	require.Equal(t, float32(0), none)
}

func TestTermOverlapIgnoresStopwordsAndCase(t *testing.T) {
	scorer := NewTermOverlap()

	// "the" and "is" contribute nothing; matching is case-insensitive.
	score, err := scorer.Score(context.Background(), "What is the WARRANTY?",
		"warranty coverage lasts two years")
	require.NoError(t, err)
	require.Equal(t, float32(1), score)
}

func TestTermOverlapEmptyQuery(t *testing.T) {
	scorer := NewTermOverlap()
	score, err := scorer.Score(context.Background(), "the a is", "anything at all")
	require.NoError(t, err)
	require.Equal(t, float32(0), score)
}
