package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Query metrics, one series per tracked operation name
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_query_duration_seconds",
			Help:    "Duration of tracked content queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation", "outcome"}, // outcome: success, error
	)

	QueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_query_total",
			Help: "Total number of tracked content queries",
		},
		[]string{"operation", "outcome"},
	)

	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_query_slow_total",
			Help: "Total number of queries exceeding their warn threshold",
		},
		[]string{"operation"},
	)

	// Result cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_lookups_total",
			Help: "Result cache lookups by entity and result",
		},
		[]string{"entity", "result"}, // result: hit, miss
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_invalidated_keys_total",
			Help: "Cache keys dropped by invalidation, by entity type tag",
		},
		[]string{"tag"},
	)

	// Degradation metrics
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_query_fallbacks_total",
			Help: "Requests served by the legacy query path",
		},
		[]string{"entity"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "content_query_breaker_state",
			Help: "Optimized path circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"entity"},
	)
)
