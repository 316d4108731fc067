package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	command := os.Args[1]
	switch command {
	case "plan":
		err = runPlan(ctx, os.Args[2:], os.Stdout, false)
	case "optimize":
		err = runPlan(ctx, os.Args[2:], os.Stdout, true)
	case "emax":
		err = runEmax(ctx, os.Args[2:], os.Stdout)
	case "nmax":
		err = runNmax(os.Args[2:], os.Stdout)
	case "check":
		err = runCheck(ctx, os.Args[2:], os.Stdout)
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("mvsplan v%s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func printUsage() {
	usage := `mvsplan - topology partitioning and VM allocation planner

Usage:
  mvsplan <command> [options]

Available Commands:
  plan        Split a topology across machines and VMs and write sub-topologies
  optimize    Run the per machine VM allocation search only
  emax        Sample the E_max(n) curve of a topology
  nmax        Compute the largest useful VM count of a platform
  check       Verify partitioner binaries, directories and memory before a plan
  help        Show this help message
  version     Show version information

Environment:
  LOG_LEVEL   debug, info, warn or error (overrides the config file)

Use "mvsplan <command> -h" for more information about a command.
`
	fmt.Print(usage)
}

// newLogger writes JSON logs to stderr. LOG_LEVEL wins over fallback.
func newLogger(fallback string) logging.Logger {
	level := fallback
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	return logging.NewJSONLogger(os.Stderr, logging.ParseLevel(level))
}
