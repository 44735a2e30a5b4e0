package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchDuration tracks end-to-end search latency.
	// Labels: result (ok, empty)
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memoryd",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Duration of semantic search operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// DegradedSearches counts searches that fell back to keyword-only
	// scoring because the query could not be embedded.
	DegradedSearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memoryd",
			Subsystem: "search",
			Name:      "degraded_total",
			Help:      "Total number of searches degraded to keyword-only scoring",
		},
	)
)
