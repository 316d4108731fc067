package fleet

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-mvsplan/pkg/allocation"
	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
	"github.com/dd0wney/cluso-mvsplan/pkg/metrics"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// Config tunes the fan-out.
type Config struct {
	// Workers bounds concurrent machines; zero uses GOMAXPROCS.
	Workers int
	// TaskTimeout bounds one machine; zero disables it.
	TaskTimeout time.Duration
}

// MachineResult is the outcome for one physical machine.
type MachineResult struct {
	Machine Machine
	Result  *allocation.Result
	// Legal is set when a feasible optimum exists and fits MaxVMs.
	Legal bool
}

// Result is the outcome of one fleet run.
type Result struct {
	RunID    uuid.UUID
	Machines map[int]MachineResult
	Duration time.Duration
}

// Optimizer runs the allocation search for every machine concurrently.
type Optimizer struct {
	alloc   *allocation.Optimizer
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewOptimizer creates a fleet optimizer on top of alloc.
func NewOptimizer(alloc *allocation.Optimizer, cfg Config, logger logging.Logger, reg *metrics.Registry) *Optimizer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Optimizer{
		alloc:   alloc,
		cfg:     cfg,
		logger:  logging.OrNop(logger).With(logging.Component("fleet")),
		metrics: reg,
	}
}

// Optimize searches each machine's share independently and joins all of
// them. A machine without a feasible allocation is reported with Legal
// false; any other failure aborts the run with a *MachineError.
func (o *Optimizer) Optimize(ctx context.Context, machines []Machine, subgraphs map[int]*topology.Graph, w Workload) (*Result, error) {
	if _, err := machineIDs(machines); err != nil {
		return nil, err
	}
	for _, m := range machines {
		if _, ok := subgraphs[m.ID]; !ok {
			return nil, &MachineError{Machine: m.ID, Err: errors.New("no subgraph")}
		}
	}

	res := &Result{RunID: uuid.New(), Machines: make(map[int]MachineResult, len(machines))}
	logger := o.logger.With(logging.RunID(res.RunID.String()))
	o.metrics.SetFleetMachines(len(machines))
	timer := logging.StartTimer(logger, "fleet optimization",
		logging.Count(len(machines)), logging.Int("workers", o.cfg.Workers))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for _, m := range machines {
		g.Go(func() error {
			mr, err := o.optimizeMachine(gctx, m, subgraphs[m.ID], w, logger)
			if err != nil {
				return &MachineError{Machine: m.ID, Err: err}
			}
			mu.Lock()
			res.Machines[m.ID] = mr
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		timer.EndError(err)
		return nil, err
	}
	res.Duration = timer.End()
	return res, nil
}

func (o *Optimizer) optimizeMachine(ctx context.Context, m Machine, sub *topology.Graph, w Workload, logger logging.Logger) (MachineResult, error) {
	if o.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TaskTimeout)
		defer cancel()
	}

	r, err := o.alloc.Optimize(ctx, w.Request(m, sub))
	if err != nil {
		return MachineResult{}, err
	}
	if ctx.Err() != nil {
		return MachineResult{}, fmt.Errorf("optimization interrupted: %w", ctx.Err())
	}

	legal := r.Optimal.Feasible() && r.Optimal.VMs <= m.MaxVMs
	o.metrics.SetOptimum(m.ID, r.Optimal.VMs, r.Optimal.Gain, legal)

	fields := []logging.Field{
		logging.Machine(m.ID),
		logging.Int("vms", r.Optimal.VMs),
		logging.Int("max_vms", m.MaxVMs),
		logging.Int("mem_conf_gb", r.Optimal.MemConf),
		logging.Gain(r.Optimal.Gain),
	}
	switch {
	case !r.Optimal.Feasible():
		logger.Warn("no feasible allocation for machine", fields...)
	case !legal:
		logger.Warn("optimal VM count exceeds machine limit", fields...)
	default:
		logger.Info("machine allocation", fields...)
	}
	return MachineResult{Machine: m, Result: r, Legal: legal}, nil
}

// Legal reports whether every machine got a legal allocation.
func (r *Result) Legal() bool {
	for _, mr := range r.Machines {
		if !mr.Legal {
			return false
		}
	}
	return true
}
