package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dd0wney/cluso-mvsplan/pkg/costmodel"
	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
	"github.com/dd0wney/cluso-mvsplan/pkg/metrics"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// MaxVCPUsPerVM caps the virtual CPUs given to one VM.
const MaxVCPUsPerVM = 8

// ErrNoFeasibleAllocation reports that no candidate met the constraints.
var ErrNoFeasibleAllocation = errors.New("no feasible allocation")

// Request describes one physical machine and its share of the topology.
type Request struct {
	// Graph is the machine's share. It may be nil when Curve is set.
	Graph *topology.Graph
	// Curve, when at least CoreCount long, is used instead of splitting Graph.
	Curve costmodel.Curve
	// Volume overrides V; zero uses the node count of Graph.
	Volume float64

	CoreCount        int
	MemoryGB         float64
	OverSubscription float64 // zero means 1
	Params           costmodel.Params
	Variant          costmodel.Variant
	MemReqGB         float64

	FixedVMCount int // zero leaves n free
	FixedMemConf int // zero leaves m_conf free
}

// Candidate is one evaluated (n, m_conf) pair.
type Candidate struct {
	VMs      int
	MemConf  int
	MemExtra float64 // n * theta[m_conf]
	Gain     float64
	Feasible bool
}

// OptimalAllocation is the chosen VM layout. When nothing was feasible it
// holds the seed (1 VM, smallest memory tier) with a gain of -Inf.
type OptimalAllocation struct {
	VMs     int
	MemConf int
	VCPUs   int
	Gain    float64
}

// Feasible reports whether a is a real optimum rather than the seed.
func (a OptimalAllocation) Feasible() bool {
	return !math.IsInf(a.Gain, -1)
}

// Result is the outcome of one Optimize call.
type Result struct {
	Candidates []Candidate
	Optimal    OptimalAllocation
	Curve      costmodel.Curve
}

// Err returns ErrNoFeasibleAllocation when no candidate was feasible.
func (r *Result) Err() error {
	if r.Optimal.Feasible() {
		return nil
	}
	return fmt.Errorf("%w among %d candidates", ErrNoFeasibleAllocation, len(r.Candidates))
}

// Optimizer runs the per machine search.
type Optimizer struct {
	splitter Splitter
	logger   logging.Logger
	metrics  *metrics.Registry
}

// NewOptimizer creates an optimizer that builds E_max curves with s.
func NewOptimizer(s Splitter, logger logging.Logger, reg *metrics.Registry) *Optimizer {
	return &Optimizer{
		splitter: s,
		logger:   logging.OrNop(logger).With(logging.Component("allocation")),
		metrics:  reg,
	}
}

func (r *Request) validate() error {
	switch {
	case r.CoreCount < 1:
		return fmt.Errorf("core count %d: must be positive", r.CoreCount)
	case r.MemoryGB <= 0:
		return fmt.Errorf("memory capacity %v GB: must be positive", r.MemoryGB)
	case r.MemReqGB <= 0:
		return fmt.Errorf("required memory %v GB: must be positive", r.MemReqGB)
	case r.OverSubscription < 0:
		return fmt.Errorf("over-subscription %v: must not be negative", r.OverSubscription)
	case r.Graph == nil && len(r.Curve) < r.CoreCount:
		return fmt.Errorf("no graph and E_max curve shorter than %d cores", r.CoreCount)
	}
	return r.Params.Validate()
}

// Optimize evaluates every (n, m_conf) with n in [2, CoreCount-1] and
// m_conf a theta key, and returns all of them with the best feasible one.
//
// A candidate is feasible when it matches the pinned VM count and memory
// tier, if any, and m_req <= n*m_conf <= MemoryGB*OverSubscription. The
// first strictly greatest gain in enumeration order wins. Finding nothing
// feasible is not an error: Result.Optimal is the seed and Result.Err
// reports it.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := o.optimize(ctx, req)
	switch {
	case err != nil:
		o.metrics.RecordOptimizerRun("error", time.Since(start), 0)
	case res.Optimal.Feasible():
		o.metrics.RecordOptimizerRun("feasible", time.Since(start), len(res.Candidates))
	default:
		o.metrics.RecordOptimizerRun("infeasible", time.Since(start), len(res.Candidates))
	}
	return res, err
}

func (o *Optimizer) optimize(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	curve := req.Curve
	if len(curve) < req.CoreCount {
		timer := logging.StartTimer(o.logger, "building E_max curve",
			logging.Count(req.Graph.NodeCount()), logging.Int("cores", req.CoreCount))
		var err error
		curve, err = BuildCurve(ctx, o.splitter, req.Graph, req.CoreCount)
		if err != nil {
			timer.EndError(err)
			return nil, err
		}
		timer.EndDebug()
	}
	o.logger.Debug("E_max curve", logging.Any("curve", []int(curve)))

	volume := req.Volume
	if volume == 0 && req.Graph != nil {
		volume = float64(req.Graph.NodeCount())
	}
	model := costmodel.Model{
		Params:  req.Params,
		Variant: req.Variant,
		Volume:  volume,
		Curve:   curve,
		MemReq:  req.MemReqGB,
	}
	oversub := req.OverSubscription
	if oversub == 0 {
		oversub = 1
	}
	limit := req.MemoryGB * oversub

	keys := req.Params.Theta.Keys()
	best := OptimalAllocation{VMs: 1, MemConf: keys[0], Gain: math.Inf(-1)}
	var candidates []Candidate
	for n := 2; n < req.CoreCount; n++ {
		for _, mconf := range keys {
			gain, err := model.Gain(n, mconf)
			if err != nil {
				return nil, err
			}
			extra, err := model.Memory(n, mconf)
			if err != nil {
				return nil, err
			}
			total := float64(n * mconf)
			c := Candidate{
				VMs:      n,
				MemConf:  mconf,
				MemExtra: extra,
				Gain:     gain,
				Feasible: (req.FixedVMCount <= 0 || n == req.FixedVMCount) &&
					(req.FixedMemConf <= 0 || mconf == req.FixedMemConf) &&
					total >= req.MemReqGB && total <= limit,
			}
			candidates = append(candidates, c)
			o.logger.Debug("candidate",
				logging.Int("vms", n),
				logging.Int("mem_conf_gb", mconf),
				logging.Float64("mem_extra_gb", extra),
				logging.Gain(gain),
				logging.Bool("feasible", c.Feasible))

			if c.Feasible && gain > best.Gain {
				best = OptimalAllocation{VMs: n, MemConf: mconf, Gain: gain}
			}
		}
	}
	best.VCPUs = min(MaxVCPUsPerVM, req.CoreCount/best.VMs)

	if best.Feasible() {
		o.logger.Info("optimal allocation",
			logging.Int("vms", best.VMs),
			logging.Int("mem_conf_gb", best.MemConf),
			logging.Int("vcpus", best.VCPUs),
			logging.Gain(best.Gain))
	} else {
		o.logger.Warn("no feasible allocation", logging.Count(len(candidates)))
	}
	return &Result{Candidates: candidates, Optimal: best, Curve: curve}, nil
}
