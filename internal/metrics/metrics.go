package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts inbound HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminikey",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// ValidationsTotal counts per-key validation outcomes.
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminikey",
			Name:      "validations_total",
			Help:      "Total key validations by resulting status",
		},
		[]string{"status"},
	)

	// ValidationDuration measures one remote check plus its upsert.
	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "geminikey",
			Name:      "validation_duration_seconds",
			Help:      "Duration of a single key validation in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// BatchesTotal counts processed validation batches.
	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geminikey",
			Name:      "batches_total",
			Help:      "Total validation batches processed",
		},
	)

	// RecordsDeletedTotal counts records removed by bulk clears.
	RecordsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geminikey",
			Name:      "records_deleted_total",
			Help:      "Total key records removed by clearing invalid keys",
		},
	)
)
