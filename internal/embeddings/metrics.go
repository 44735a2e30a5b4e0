package embeddings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationDuration tracks embedding generation latency.
	// Labels: operation (embed_query, embed_documents)
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memoryd",
			Subsystem: "embeddings",
			Name:      "generation_duration_seconds",
			Help:      "Duration of embedding generation in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"operation"},
	)

	// GenerationTotal counts embedding generation attempts.
	// Labels: operation, result (success, error)
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memoryd",
			Subsystem: "embeddings",
			Name:      "generation_total",
			Help:      "Total number of embedding generation attempts",
		},
		[]string{"operation", "result"},
	)
)
