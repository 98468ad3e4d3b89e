// Package middleware provides cross-cutting concerns for the ratings engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-merit/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks vote throughput, reputation propagation
// outcomes, algorithm resolution, and write-path latency.
type PrometheusMetrics struct {
	ratingsSet        *prometheus.CounterVec
	reputationUpdates *prometheus.CounterVec
	resolutions       *prometheus.CounterVec
	operationCounter  *prometheus.CounterVec
	executionLatency  *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		ratingsSet: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratings_set_total",
				Help: "Total number of votes cast or changed.",
			},
			[]string{"item"},
		),
		reputationUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reputation_updates_total",
				Help: "Reputation update attempts by role and outcome.",
			},
			[]string{"role", "status"},
		),
		resolutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "algorithm_resolutions_total",
				Help: "Reputation algorithm resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratings_engine_operations_total",
				Help: "Total number of operations performed by the ratings engine.",
			},
			[]string{"operation", "status"},
		),
		executionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratings_engine_operation_duration_seconds",
				Help:    "Execution time of ratings engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by
// incrementing Prometheus counters. Known engine metrics route to their
// dedicated vectors; everything else lands on the generic operation
// counter.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "ratings_set_total":
		pm.ratingsSet.WithLabelValues(labels["item"]).Add(value)
	case "reputation_updates_total":
		pm.reputationUpdates.WithLabelValues(labels["role"], labels["status"]).Add(value)
	case "algorithm_resolutions_total":
		pm.resolutions.WithLabelValues(labels["outcome"]).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
