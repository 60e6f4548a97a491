package embeddings

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// embeddingRequests counts embedding requests.
	// Labels: operation (embed_documents, embed_query), result (success, error)
	embeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "embeddings",
			Name:      "requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"operation", "result"},
	)

	// embeddingDuration tracks embedding request latency.
	embeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragd",
			Subsystem: "embeddings",
			Name:      "request_duration_seconds",
			Help:      "Duration of embedding requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// embeddedTexts counts individual texts embedded.
	embeddedTexts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "embeddings",
			Name:      "texts_total",
			Help:      "Total number of texts embedded",
		},
	)
)

// recordEmbedding records the outcome of one embedding request.
func recordEmbedding(operation string, d time.Duration, texts int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	embeddingRequests.WithLabelValues(operation, result).Inc()
	embeddingDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err == nil {
		embeddedTexts.Add(float64(texts))
	}
}
