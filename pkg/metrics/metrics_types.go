package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Partitioner levels used as the "level" label.
const (
	LevelVM = "vm"
	LevelPM = "pm"
)

// Registry holds all metrics for the planner. A nil *Registry is valid and
// records nothing.
type Registry struct {
	// Partitioner Metrics
	PartitionerCallsTotal   *prometheus.CounterVec
	PartitionerDuration     *prometheus.HistogramVec
	PartitionerRetriesTotal *prometheus.CounterVec
	CapacityAttemptsTotal   *prometheus.CounterVec
	CapacityFactor          prometheus.Gauge

	// Optimizer Metrics
	OptimizerRunsTotal       *prometheus.CounterVec
	OptimizerDuration        prometheus.Histogram
	CandidatesEvaluatedTotal prometheus.Counter
	OptimumGain              *prometheus.GaugeVec
	OptimumVMs               *prometheus.GaugeVec
	OptimumLegal             *prometheus.GaugeVec
	FleetMachines            prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
	mu        sync.Mutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry:  reg,
		startTime: time.Now(),
	}

	r.initPartitionerMetrics()
	r.initOptimizerMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
