package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-mvsplan/pkg/allocation"
	"github.com/dd0wney/cluso-mvsplan/pkg/costmodel"
)

func runNmax(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("nmax", flag.ContinueOnError)
	fs.SetOutput(out)
	platform := fs.String("platform", "amd64", "builtin platform (amd64 or arm64)")
	mGraph := fs.Float64("m-graph", 0, "memory needed for the graph in GB")
	mConf := fs.Int("m-conf", 8, "configured VM memory in GB")
	bound := fs.Float64("s", 1, "lower bound of the gain")
	limit := fs.Int("limit", allocation.DefaultNMaxLimit, "largest VM count considered")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mGraph <= 0 {
		return fmt.Errorf("nmax: -m-graph must be positive")
	}

	params, ok := costmodel.Builtin(*platform)
	if !ok {
		return fmt.Errorf("nmax: unknown platform %q", *platform)
	}
	overhead, ok := params.Theta.Lookup(*mConf)
	if !ok {
		return fmt.Errorf("nmax: %w: %d GB on %s (have %v)", costmodel.ErrUnknownMemConfig, *mConf, *platform, params.Theta.Keys())
	}

	nmax := allocation.MaxVMCount(*mGraph, overhead, *bound, *limit)
	return renderNmax(out, *mGraph, overhead, *bound, *limit, nmax)
}
