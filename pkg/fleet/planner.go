package fleet

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-mvsplan/pkg/allocation"
	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
	"github.com/dd0wney/cluso-mvsplan/pkg/partition"
	"github.com/dd0wney/cluso-mvsplan/pkg/tbs"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// PMPartitioner splits a topology across physical machines.
// *tbs.Partitioner implements it.
type PMPartitioner interface {
	Partition(ctx context.Context, g *topology.Graph, machines []int) (*tbs.Result, error)
}

// PlanOptions controls what Plan writes.
type PlanOptions struct {
	// OutDir receives sub-topologies and per machine CSVs. Nothing is
	// written when empty.
	OutDir     string
	LinkIDBase int
	// SkipSubgraphs stops after the fleet optimization.
	SkipSubgraphs bool
}

// Plan is the outcome of a full planning run.
type Plan struct {
	PM    *tbs.Result
	Fleet *Result
	// VMs is the VM count used per machine and Offsets its first VM id.
	VMs        map[int]int
	Offsets    map[int]int
	Assignment partition.Assignment // node -> global VM id
	Saved      *topology.SaveResult
	CSVPaths   map[int]string
	// PMQuality and VMQuality describe the two splits. VMQuality is nil
	// when the VM split was skipped.
	PMQuality *partition.Metrics
	VMQuality *partition.Metrics
}

// BalanceTolerance is how far above the mean size a partition may grow
// before the planner warns about it.
const BalanceTolerance = 0.1

// Planner chains the physical machine split, the fleet optimization and
// the per machine VM split.
type Planner struct {
	pm     PMPartitioner
	vm     allocation.Splitter
	fleet  *Optimizer
	opts   PlanOptions
	logger logging.Logger
}

// NewPlanner creates a planner.
func NewPlanner(pm PMPartitioner, vm allocation.Splitter, fleet *Optimizer, opts PlanOptions, logger logging.Logger) *Planner {
	return &Planner{
		pm:     pm,
		vm:     vm,
		fleet:  fleet,
		opts:   opts,
		logger: logging.OrNop(logger).With(logging.Component("planner")),
	}
}

// VMCount is the number of VMs machine m runs: the optimum when it is
// legal, otherwise the optimum clamped to [1, m.MaxVMs].
func VMCount(mr MachineResult) int {
	n := mr.Result.Optimal.VMs
	if mr.Legal {
		return n
	}
	if n > mr.Machine.MaxVMs {
		n = mr.Machine.MaxVMs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Plan splits g across machines, picks each machine's allocation and, unless
// disabled, splits every machine's share across its VMs and writes one
// sub-topology per VM next to topoPath's name in OutDir.
func (p *Planner) Plan(ctx context.Context, g *topology.Graph, machines []Machine, w Workload, topoPath string) (*Plan, error) {
	ids, err := machineIDs(machines)
	if err != nil {
		return nil, err
	}
	if len(machines) == 0 {
		return nil, fmt.Errorf("no machines")
	}

	pmRes, err := p.pm.Partition(ctx, g, ids)
	if err != nil {
		return nil, fmt.Errorf("split across machines: %w", err)
	}
	pmQuality, err := p.quality("pm", g, pmRes.Assignment)
	if err != nil {
		return nil, err
	}
	fleetRes, err := p.fleet.Optimize(ctx, machines, pmRes.Subgraphs, w)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		PM:        pmRes,
		PMQuality: pmQuality,
		Fleet:     fleetRes,
		VMs:       make(map[int]int, len(machines)),
		Offsets:   make(map[int]int, len(machines)),
		CSVPaths:  make(map[int]string),
	}
	offset := 0
	for _, m := range machines {
		plan.VMs[m.ID] = VMCount(fleetRes.Machines[m.ID])
		plan.Offsets[m.ID] = offset
		offset += plan.VMs[m.ID]
	}

	if p.opts.OutDir != "" {
		for _, m := range machines {
			path, err := allocation.WriteMachineCSV(p.opts.OutDir, m.ID, fleetRes.Machines[m.ID].Result.Candidates)
			if err != nil {
				return nil, &MachineError{Machine: m.ID, Err: err}
			}
			plan.CSVPaths[m.ID] = path
		}
	}

	if p.opts.SkipSubgraphs {
		return plan, nil
	}
	if plan.Assignment, err = p.splitVMs(ctx, machines, pmRes, plan); err != nil {
		return nil, err
	}
	p.logger.Info("vm split complete", logging.Count(offset), logging.RunID(fleetRes.RunID.String()))
	if plan.VMQuality, err = p.quality("vm", g, plan.Assignment); err != nil {
		return nil, err
	}

	if p.opts.OutDir != "" && topoPath != "" {
		plan.Saved, err = topology.SaveSubgraphs(g, plan.Assignment, topology.SubgraphOptions{
			BasePath:   filepath.Join(p.opts.OutDir, filepath.Base(topoPath)),
			LinkIDBase: p.opts.LinkIDBase,
		})
		if err != nil {
			return nil, err
		}
		p.logger.Info("sub-topologies written",
			logging.Count(len(plan.Saved.Paths)), logging.Int("links", len(plan.Saved.Links)))
	}
	return plan, nil
}

// quality computes and logs the balance of one split level.
func (p *Planner) quality(level string, g *topology.Graph, a partition.Assignment) (*partition.Metrics, error) {
	m, err := partition.ComputeMetrics(g, a)
	if err != nil {
		return nil, fmt.Errorf("%s split quality: %w", level, err)
	}
	p.logger.Info("split quality",
		logging.Any("level", level),
		logging.Partitions(len(m.Parts)),
		logging.Any("sizes", m.PartitionSizes),
		logging.Float64("load_balance", m.LoadBalance),
		logging.Float64("cut_ratio", m.CutRatio))
	for _, o := range partition.Overloaded(m, BalanceTolerance) {
		p.logger.Warn("partition above mean size",
			logging.Any("level", level),
			logging.Int("partition", o.FromPartition),
			logging.Count(o.NodeCount))
	}
	return m, nil
}

func (p *Planner) splitVMs(ctx context.Context, machines []Machine, pmRes *tbs.Result, plan *Plan) (partition.Assignment, error) {
	var mu sync.Mutex
	merged := make(partition.Assignment)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fleet.cfg.Workers)
	for _, m := range machines {
		sub := pmRes.Subgraphs[m.ID]
		if sub.NodeCount() == 0 {
			continue
		}
		// A share smaller than its VM count leaves the surplus VMs empty.
		k := min(plan.VMs[m.ID], sub.NodeCount())
		g.Go(func() error {
			a, err := p.vm.Split(gctx, sub, k, plan.Offsets[m.ID], false)
			if err != nil {
				return &MachineError{Machine: m.ID, Err: fmt.Errorf("vm split: %w", err)}
			}
			mu.Lock()
			merged.Merge(a)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}
