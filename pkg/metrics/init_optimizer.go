package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initOptimizerMetrics() {
	r.OptimizerRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mvs_optimizer_runs_total",
			Help: "Allocation optimizer runs by outcome",
		},
		[]string{"outcome"},
	)

	r.OptimizerDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mvs_optimizer_duration_seconds",
			Help:    "Allocation optimizer wall time including E_max curve construction",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	r.CandidatesEvaluatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "mvs_candidates_evaluated_total",
			Help: "Allocation candidates evaluated",
		},
	)

	r.OptimumGain = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mvs_optimum_gain",
			Help: "Gain of the optimal allocation per physical machine",
		},
		[]string{"pm"},
	)

	r.OptimumVMs = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mvs_optimum_vms",
			Help: "VM count of the optimal allocation per physical machine",
		},
		[]string{"pm"},
	)

	r.OptimumLegal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mvs_optimum_legal",
			Help: "1 if the optimal VM count fits the physical machine",
		},
		[]string{"pm"},
	)

	r.FleetMachines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "mvs_fleet_machines",
			Help: "Physical machines in the last fleet run",
		},
	)
}
