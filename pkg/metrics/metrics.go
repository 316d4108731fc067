package metrics

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordPartitionerCall records one external partitioner invocation.
// outcome is "ok", "input_error" or "error".
func (r *Registry) RecordPartitionerCall(level, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.PartitionerCallsTotal.WithLabelValues(level, outcome).Inc()
	r.PartitionerDuration.WithLabelValues(level).Observe(duration.Seconds())
}

// RecordPartitionerRetry counts an attempt repeated after a recoverable failure.
func (r *Registry) RecordPartitionerRetry(level string) {
	if r == nil {
		return
	}
	r.PartitionerRetriesTotal.WithLabelValues(level).Inc()
}

// RecordCapacityAttempt records one capacity factor attempt of the
// physical machine split.
func (r *Registry) RecordCapacityAttempt(factor float64, ok bool) {
	if r == nil {
		return
	}
	if ok {
		r.CapacityAttemptsTotal.WithLabelValues("ok").Inc()
		r.CapacityFactor.Set(factor)
		return
	}
	r.CapacityAttemptsTotal.WithLabelValues("failed").Inc()
}

// RecordOptimizerRun records one allocation optimizer run.
// outcome is "feasible", "infeasible" or "error".
func (r *Registry) RecordOptimizerRun(outcome string, duration time.Duration, candidates int) {
	if r == nil {
		return
	}
	r.OptimizerRunsTotal.WithLabelValues(outcome).Inc()
	r.OptimizerDuration.Observe(duration.Seconds())
	r.CandidatesEvaluatedTotal.Add(float64(candidates))
}

// SetOptimum publishes the optimal allocation of one physical machine.
func (r *Registry) SetOptimum(pm int, vms int, gain float64, legal bool) {
	if r == nil {
		return
	}
	label := strconv.Itoa(pm)
	r.OptimumGain.WithLabelValues(label).Set(gain)
	r.OptimumVMs.WithLabelValues(label).Set(float64(vms))
	if legal {
		r.OptimumLegal.WithLabelValues(label).Set(1)
	} else {
		r.OptimumLegal.WithLabelValues(label).Set(0)
	}
}

// SetFleetMachines sets the machine count of the current fleet run.
func (r *Registry) SetFleetMachines(n int) {
	if r == nil {
		return
	}
	r.FleetMachines.Set(float64(n))
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges.
func (r *Registry) UpdateSystemMetrics() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(ms.Alloc))
	r.MemorySysBytes.Set(float64(ms.Sys))
}

// WriteTextfile refreshes the system gauges and writes every metric to
// path in the Prometheus text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	r.UpdateSystemMetrics()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
