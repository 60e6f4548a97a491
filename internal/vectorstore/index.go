// Package vectorstore provides the flat vector index and its persistence.
package vectorstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrInvalidConfig indicates invalid index configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch is returned when a vector's length differs
	// from the index dimension. Vectors are never truncated or padded.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexNotFound is returned when the persisted artifact is absent.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt is returned when the persisted artifact is
	// structurally invalid and must be rebuilt.
	ErrIndexCorrupt = errors.New("index corrupt")
)

// Chunk is a bounded text segment derived from one source document, the
// atomic unit of retrieval. Chunks are immutable after creation.
type Chunk struct {
	// ID is the stable chunk identifier ({doc id}:{ordinal}).
	ID string `json:"id"`

	// DocID references the parent document (lookup only).
	DocID string `json:"doc_id"`

	// DocName is the human-readable parent document name.
	DocName string `json:"doc_name"`

	// Ordinal is the chunk position within its document.
	Ordinal int `json:"ordinal"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Metadata is inherited from the parent document (e.g. source path).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Candidate is a transient search result: a chunk with its score under
// the index metric. For "l2" lower is more similar; for "ip" higher is.
type Candidate struct {
	Chunk Chunk
	Score float32
}

// Index is an exact nearest-neighbor index over chunk vectors.
//
// The index is append-only at runtime: vectors are added during a build
// and never mutated in place. Once built (or loaded) it is read-only and
// safe for concurrent searches.
type Index struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	model     string
	chunks    []Chunk
	vectors   [][]float32
}

// NewIndex creates an empty index for vectors of the given dimension.
// The model identifier records which embedding model produced the
// vectors; it travels with the persisted artifact.
func NewIndex(dimension int, metric Metric, model string) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dimension)
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	return &Index{
		dimension: dimension,
		metric:    metric,
		model:     model,
	}, nil
}

// Dimension returns the fixed vector dimension of the index.
func (idx *Index) Dimension() int { return idx.dimension }

// Metric returns the configured distance metric.
func (idx *Index) Metric() Metric { return idx.metric }

// Model returns the embedding model identifier recorded at build time.
func (idx *Index) Model() string { return idx.model }

// Len returns the number of stored (chunk, vector) pairs.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Add appends a (chunk, vector) pair to the index.
func (idx *Index) Add(chunk Chunk, vector []float32) error {
	if len(vector) != idx.dimension {
		return fmt.Errorf("%w: got %d, index dimension is %d", ErrDimensionMismatch, len(vector), idx.dimension)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = append(idx.chunks, chunk)
	idx.vectors = append(idx.vectors, vector)
	return nil
}

// Search returns the k nearest chunks to the query vector, most similar
// first under the index metric. Ties are broken by insertion order so
// the result is a deterministic function of (contents, query, metric).
// An empty index yields an empty result, not an error.
func (idx *Index) Search(query []float32, k int) ([]Candidate, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d, index dimension is %d", ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 {
		k = 10
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		pos   int
		score float32
	}
	all := make([]scored, len(idx.vectors))
	for i, vec := range idx.vectors {
		all[i] = scored{pos: i, score: idx.metric.Score(query, vec)}
	}

	descending := idx.metric.Descending()
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			if descending {
				return all[i].score > all[j].score
			}
			return all[i].score < all[j].score
		}
		return all[i].pos < all[j].pos
	})

	if k > len(all) {
		k = len(all)
	}
	results := make([]Candidate, 0, k)
	for i := 0; i < k; i++ {
		results = append(results, Candidate{
			Chunk: idx.chunks[all[i].pos],
			Score: all[i].score,
		})
	}
	return results, nil
}

// snapshot returns copies of the chunk and vector slices for persistence.
func (idx *Index) snapshot() ([]Chunk, [][]float32) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	chunks := make([]Chunk, len(idx.chunks))
	copy(chunks, idx.chunks)
	vectors := make([][]float32, len(idx.vectors))
	copy(vectors, idx.vectors)
	return chunks, vectors
}
