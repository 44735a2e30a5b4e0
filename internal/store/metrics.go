package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// OperationDuration tracks store operation latency.
	// Labels: operation (append, query_by_type, full_text_search, ...)
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memoryd",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// OperationResults tracks how many rows store operations return.
	OperationResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memoryd",
			Subsystem: "store",
			Name:      "operation_results",
			Help:      "Result counts of store operations",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"operation"},
	)
)

// recordOperation writes one observability row and updates Prometheus.
// Metrics are advisory only: failures are logged at debug and dropped.
func (s *Store) recordOperation(ctx context.Context, operation string, start time.Time, resultCount int) {
	elapsed := time.Since(start)
	OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	OperationResults.WithLabelValues(operation).Observe(float64(resultCount))

	db := s.dbHandle()
	if db == nil {
		return
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO operation_metrics (timestamp, operation, duration_ms, result_count) VALUES (?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339), operation, elapsed.Milliseconds(), resultCount); err != nil {
		s.logger.Debug("recording operation metric failed", zap.Error(err))
	}
}

// recordTokenUsage accounts embedding input units per call.
func (s *Store) recordTokenUsage(ctx context.Context, inputUnits int, status string) {
	db := s.dbHandle()
	if db == nil {
		return
	}
	model := s.model
	if model == "" {
		model = "unknown"
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO token_usage (timestamp, model, input_units, output_units, total_units, status) VALUES (?, ?, ?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339), model, inputUnits, 0, inputUnits, status); err != nil {
		s.logger.Debug("recording token usage failed", zap.Error(err))
	}
}
