package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPartitionerMetrics() {
	r.PartitionerCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mvs_partitioner_calls_total",
			Help: "External partitioner invocations by level and outcome",
		},
		[]string{"level", "outcome"},
	)

	r.PartitionerDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mvs_partitioner_duration_seconds",
			Help:    "External partitioner wall time",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"level"},
	)

	r.PartitionerRetriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mvs_partitioner_retries_total",
			Help: "Partitioner attempts repeated after a recoverable failure",
		},
		[]string{"level"},
	)

	r.CapacityAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mvs_capacity_attempts_total",
			Help: "Physical machine partitioner attempts by outcome",
		},
		[]string{"outcome"},
	)

	r.CapacityFactor = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "mvs_capacity_factor",
			Help: "Capacity factor accepted by the last physical machine split",
		},
	)
}
