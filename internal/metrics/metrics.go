package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamAttempts counts every outbound attempt by upstream and outcome.
	UpstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_upstream_attempts_total",
			Help: "Outbound upstream attempts by outcome",
		},
		[]string{"upstream", "outcome"},
	)

	// UpstreamRetries counts backoff sleeps taken before a retry.
	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_upstream_retries_total",
			Help: "Retries scheduled after a transient upstream failure",
		},
		[]string{"upstream"},
	)

	// UpstreamLatency tracks single-attempt latency.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crop_upstream_latency_seconds",
			Help:    "Upstream attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crop_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"upstream"},
	)

	// BreakerTransitions counts state changes.
	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"upstream", "from", "to"},
	)

	// CacheLookups counts result cache hits and misses.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_cache_lookups_total",
			Help: "Result cache lookups by result",
		},
		[]string{"result"},
	)

	// CacheEntries is the current number of cached entries.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crop_cache_entries",
			Help: "Entries currently held by the result cache",
		},
	)

	// Fallbacks counts degraded-data substitutions by data class.
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_fallbacks_total",
			Help: "Times synthesized or table data replaced an upstream value",
		},
		[]string{"kind"},
	)

	// PredictionDuration tracks end-to-end prediction latency.
	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crop_prediction_duration_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
