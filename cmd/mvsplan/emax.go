package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime"

	"github.com/dd0wney/cluso-mvsplan/pkg/allocation"
	"github.com/dd0wney/cluso-mvsplan/pkg/metis"
	"github.com/dd0wney/cluso-mvsplan/pkg/metrics"
)

func runEmax(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("emax", flag.ContinueOnError)
	fs.SetOutput(out)
	topoPath := fs.String("topo", "", "topology file")
	family := fs.String("family", "", "check the topology against a family such as clos_32")
	maxN := fs.Int("max-n", 16, "largest partition count")
	runs := fs.Int("runs", 10, "randomized runs per partition count")
	workers := fs.Int("workers", max(1, runtime.NumCPU()*2/3), "concurrent partitioner runs")
	gpmetis := fs.String("gpmetis", metis.DefaultGpmetisBinary, "gpmetis binary")
	metricsOut := fs.String("metrics-out", "", "write metrics in text format to this file")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topoPath == "" {
		return fmt.Errorf("emax: -topo is required")
	}

	logger := newLogger(*logLevel)
	reg := metrics.NewRegistry()
	g, err := loadTopology(*topoPath, *family)
	if err != nil {
		return err
	}

	splitter := metis.NewSplitter(&metis.Gpmetis{Binary: *gpmetis}, nil, metis.Config{}, logger, reg)
	sample, err := allocation.SampleCurve(ctx, splitter, g, *maxN, *runs, *workers, logger)
	if err != nil {
		return err
	}
	if err := renderSample(out, sample); err != nil {
		return err
	}
	return writeMetrics(reg, *metricsOut, logger)
}
