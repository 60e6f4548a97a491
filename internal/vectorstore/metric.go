package vectorstore

import (
	"fmt"
	"math"
)

// Metric identifies the distance metric used by an index.
type Metric string

const (
	// MetricL2 is Euclidean distance. Lower score = more similar.
	MetricL2 Metric = "l2"

	// MetricIP is inner product. Higher score = more similar.
	// Cosine similarity requires pre-normalized vectors under this metric.
	MetricIP Metric = "ip"
)

// ParseMetric validates and returns a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricL2:
		return MetricL2, nil
	case MetricIP:
		return MetricIP, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidConfig, s)
	}
}

// Descending reports whether higher scores mean more similar under m.
func (m Metric) Descending() bool {
	return m == MetricIP
}

// Score computes the raw score between two equal-length vectors under m.
func (m Metric) Score(a, b []float32) float32 {
	if m == MetricL2 {
		return l2Distance(a, b)
	}
	return dotProduct(a, b)
}

// l2Distance calculates the Euclidean distance between two vectors.
func l2Distance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}

// dotProduct calculates the inner product of two vectors.
// For normalized vectors this equals cosine similarity.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize returns a copy of v scaled to unit length. Zero vectors are
// returned unchanged.
func Normalize(v []float32) []float32 {
	var norm float32
	for _, val := range v {
		norm += val * val
	}
	if norm == 0 {
		return v
	}
	norm = float32(math.Sqrt(float64(norm)))
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = val / norm
	}
	return out
}
