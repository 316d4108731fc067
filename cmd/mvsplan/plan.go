package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-mvsplan/pkg/allocation"
	"github.com/dd0wney/cluso-mvsplan/pkg/config"
	"github.com/dd0wney/cluso-mvsplan/pkg/fleet"
	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
	"github.com/dd0wney/cluso-mvsplan/pkg/metis"
	"github.com/dd0wney/cluso-mvsplan/pkg/metrics"
	"github.com/dd0wney/cluso-mvsplan/pkg/tbs"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

type planFlags struct {
	configPath string
	topoPath   string
	outDir     string
	metricsOut string
	family     string
	workers    int
}

func parsePlanFlags(name string, args []string, out io.Writer) (*planFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	f := &planFlags{}
	fs.StringVar(&f.configPath, "config", "mvsplan.yaml", "configuration file (.yaml, .yml or .json)")
	fs.StringVar(&f.topoPath, "topo", "", "topology file")
	fs.StringVar(&f.outDir, "out", "", "output directory (overrides output.dir)")
	fs.StringVar(&f.metricsOut, "metrics-out", "", "write metrics in text format to this file")
	fs.StringVar(&f.family, "family", "", "check the topology against a family such as grid_10_10")
	fs.IntVar(&f.workers, "workers", 0, "concurrent machines (overrides fleet.workers)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.topoPath == "" {
		return nil, fmt.Errorf("%s: -topo is required", name)
	}
	return f, nil
}

func loadTopology(path, family string) (*topology.Graph, error) {
	g, err := topology.Load(path)
	if err != nil {
		return nil, err
	}
	if family != "" {
		fam, err := topology.ParseFamily(family)
		if err != nil {
			return nil, err
		}
		if err := topology.CheckFamily(g, fam); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func runPlan(ctx context.Context, args []string, out io.Writer, optimizeOnly bool) error {
	name := "plan"
	if optimizeOnly {
		name = "optimize"
	}
	f, err := parsePlanFlags(name, args, out)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.outDir != "" {
		cfg.Output.Dir = f.outDir
	}
	if f.metricsOut != "" {
		cfg.Output.MetricsFile = f.metricsOut
	}
	if f.workers > 0 {
		cfg.Fleet.Workers = f.workers
	}

	logger := newLogger(cfg.LogLevel)
	reg := metrics.NewRegistry()

	g, err := loadTopology(f.topoPath, f.family)
	if err != nil {
		return err
	}
	machines, err := cfg.FleetMachines()
	if err != nil {
		return err
	}
	workload, err := cfg.Workload()
	if err != nil {
		return err
	}

	splitter := metis.NewSplitter(cfg.MetisBackend(), nil, cfg.MetisConfig(), logger, reg)
	fleetOpt := fleet.NewOptimizer(allocation.NewOptimizer(splitter, logger, reg), cfg.FleetConfig(), logger, reg)
	opts := cfg.PlanOptions()
	if optimizeOnly {
		opts.SkipSubgraphs = true
	}
	planner := fleet.NewPlanner(tbs.NewPartitioner(cfg.TBSConfig(), logger, reg), splitter, fleetOpt, opts, logger)

	logger.Info("planning",
		logging.Path(f.topoPath),
		logging.Count(g.NodeCount()),
		logging.Int("links", g.EdgeCount()),
		logging.Int("machines", len(machines)))
	plan, err := planner.Plan(ctx, g, machines, workload, f.topoPath)
	if err != nil {
		return err
	}

	if err := renderPlan(out, plan); err != nil {
		return err
	}
	return writeMetrics(reg, cfg.Output.MetricsFile, logger)
}

func writeMetrics(reg *metrics.Registry, path string, logger logging.Logger) error {
	if path == "" {
		return nil
	}
	reg.UpdateSystemMetrics()
	if err := reg.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	logger.Info("metrics written", logging.Path(path))
	return nil
}
