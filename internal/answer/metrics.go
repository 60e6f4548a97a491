package answer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generations counts answer generation outcomes.
	// Labels: result (success, refused, error)
	generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "answer",
			Name:      "generations_total",
			Help:      "Total number of answer generation attempts by outcome",
		},
		[]string{"result"},
	)

	// generationDuration tracks remote generation latency.
	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragd",
			Subsystem: "answer",
			Name:      "generation_duration_seconds",
			Help:      "Duration of answer generation in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
	)
)

// recordGeneration records one generation outcome.
func recordGeneration(result string, d time.Duration) {
	generations.WithLabelValues(result).Inc()
	if d > 0 {
		generationDuration.Observe(d.Seconds())
	}
}
