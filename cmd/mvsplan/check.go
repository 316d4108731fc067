package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/dd0wney/cluso-mvsplan/pkg/config"
	"github.com/dd0wney/cluso-mvsplan/pkg/health"
	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
)

// errPreflightFailed is returned when at least one check is unhealthy.
var errPreflightFailed = errors.New("preflight failed")

// preflight registers the checks a plan with this configuration depends on.
func preflight(cfg *config.Config) *health.Checker {
	c := health.NewChecker()
	c.Register("gpmetis", health.BinaryCheck("gpmetis", cfg.Partitioner.Metis.Binary))
	if dir := cfg.Partitioner.Metis.TempDir; dir != "" {
		c.Register("metis_temp_dir", health.WritableDirCheck("metis_temp_dir", dir))
	}
	if len(cfg.Machines) > 1 {
		c.Register("tbs", health.BinaryCheck("tbs", cfg.Partitioner.TBS.Binary))
		c.Register("tbs_work_dir", health.WritableDirCheck("tbs_work_dir", cfg.Partitioner.TBS.WorkDir))
	}
	if dir := cfg.Output.Dir; dir != "" {
		c.Register("output_dir", health.WritableDirCheck("output_dir", dir))
	}

	machines := make([]health.MachineMemory, len(cfg.Machines))
	for i, m := range cfg.Machines {
		machines[i] = health.MachineMemory{ID: m.ID, MemoryGB: m.MemoryGB}
	}
	c.Register("memory", health.MemoryCheck(machines, cfg.Experiment.MemReqGB, cfg.Experiment.OverSubscription))
	return c
}

func runCheck(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "mvsplan.yaml", "configuration file (.yaml, .yml or .json)")
	outDir := fs.String("out", "", "output directory (overrides output.dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	logger := newLogger(cfg.LogLevel)

	checker := preflight(cfg)
	report := checker.Run(ctx)
	for _, name := range checker.Names() {
		check := report.Checks[name]
		logger.Debug("preflight check",
			logging.Component(name),
			logging.Any("status", check.Status),
			logging.Latency(check.Duration))
	}

	if err := renderReport(out, report, checker.Names()); err != nil {
		return err
	}
	if !report.Healthy() {
		return errPreflightFailed
	}
	return nil
}
