// Package tbs splits a topology across physical machines with the TBS
// capacity-constrained partitioner, run as a subprocess.
package tbs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
	"github.com/dd0wney/cluso-mvsplan/pkg/metrics"
	"github.com/dd0wney/cluso-mvsplan/pkg/partition"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// Defaults for Config.
const (
	DefaultPreconfiguration = "esocial"
	DefaultFatalSignature   = "Traceback"
	DefaultMaxAttempts      = 25
	DefaultExchangeName     = "mvsplan.graph"
)

// Config locates the TBS binary and its files.
type Config struct {
	Binary           string
	WorkDir          string // TBS runs here and writes tmppartition<k> here
	ExchangePath     string // WorkDir/DefaultExchangeName when empty
	Preconfiguration string
	FatalSignature   string // stderr marker of a failed run despite exit 0
	MaxAttempts      int
}

// Result is a physical machine split. Every declared machine has an entry
// in Nodes and Subgraphs, possibly empty.
type Result struct {
	Assignment partition.Assignment
	Nodes      map[int][]topology.NodeID
	Subgraphs  map[int]*topology.Graph
	Factor     float64 // accepted capacity factor, 0 for a single machine
}

// Partitioner is the physical machine level partitioner.
type Partitioner struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewPartitioner creates a partitioner. A nil logger or registry disables
// logging or metrics.
func NewPartitioner(cfg Config, logger logging.Logger, reg *metrics.Registry) *Partitioner {
	if cfg.Preconfiguration == "" {
		cfg.Preconfiguration = DefaultPreconfiguration
	}
	if cfg.FatalSignature == "" {
		cfg.FatalSignature = DefaultFatalSignature
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.ExchangePath == "" {
		cfg.ExchangePath = filepath.Join(cfg.WorkDir, DefaultExchangeName)
	}
	return &Partitioner{
		cfg:     cfg,
		logger:  logging.OrNop(logger).With(logging.Component("tbs")),
		metrics: reg,
	}
}

// Partition assigns every node of g to one of machines. Repeated machine
// ids collapse. Block b of the TBS result maps to the b-th distinct id.
func (p *Partitioner) Partition(ctx context.Context, g *topology.Graph, machines []int) (*Result, error) {
	ids := distinct(machines)
	if len(ids) == 0 {
		return nil, errors.New("tbs: no physical machines declared")
	}
	if len(ids) == 1 {
		p.logger.Info("single physical machine, skipping tbs", logging.Machine(ids[0]))
		return newResult(g, partition.Uniform(g, ids[0]), ids, 0)
	}

	exchange, err := filepath.Abs(p.cfg.ExchangePath)
	if err != nil {
		return nil, fmt.Errorf("tbs exchange path: %w", err)
	}
	if err := topology.WriteMETISFile(exchange, g); err != nil {
		return nil, err
	}

	k := len(ids)
	var sched CapacitySchedule
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		factor := sched.Next()
		capacity := Capacity(factor, g.NodeCount(), k)

		timer := logging.StartTimer(p.logger, "tbs run",
			logging.Attempt(attempt), logging.CapacityFactor(factor),
			logging.Int("capacity", capacity), logging.Partitions(k))
		blocks, err := p.run(ctx, exchange, k, capacity, factor)
		if err == nil {
			p.metrics.RecordPartitionerCall(metrics.LevelPM, "ok", timer.End())
			p.metrics.RecordCapacityAttempt(factor, true)
			assignment, err := mapBlocks(g, blocks, ids)
			if err != nil {
				return nil, err
			}
			return newResult(g, assignment, ids, factor)
		}

		var pe *ProcessError
		if !errors.As(err, &pe) {
			p.metrics.RecordPartitionerCall(metrics.LevelPM, "error", timer.EndError(err))
			return nil, err
		}
		p.metrics.RecordPartitionerCall(metrics.LevelPM, "error", timer.EndDebug())
		p.metrics.RecordCapacityAttempt(factor, false)
		p.metrics.RecordPartitionerRetry(metrics.LevelPM)
		p.logger.Warn("tbs failed, relaxing capacity", logging.Attempt(attempt),
			logging.CapacityFactor(factor), logging.Error(err))
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %d attempts: %w", ErrCapacityExhausted, p.cfg.MaxAttempts, lastErr)
}

// ResultPath is where TBS leaves the partition of a k-way split.
func (p *Partitioner) ResultPath(k int) string {
	return filepath.Join(p.cfg.WorkDir, fmt.Sprintf("tmppartition%d", k))
}

func (p *Partitioner) run(ctx context.Context, exchange string, k, capacity int, factor float64) ([]int, error) {
	resultPath := p.ResultPath(k)
	if err := os.Remove(resultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale tbs result: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.cfg.Binary, exchange,
		"--k="+strconv.Itoa(k),
		"--cpu_capacity="+strconv.Itoa(capacity),
		"--preconfiguration="+p.cfg.Preconfiguration,
	)
	cmd.Dir = p.cfg.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if stdout.Len() > 0 {
		p.logger.Debug("tbs output", logging.String("stdout", stdout.String()))
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ee *exec.ExitError
		if !errors.As(runErr, &ee) {
			return nil, fmt.Errorf("start tbs: %w", runErr)
		}
		return nil, &ProcessError{Factor: factor, Capacity: capacity, ExitCode: ee.ExitCode(),
			Stderr: strings.TrimSpace(stderr.String()), Err: runErr}
	}
	if strings.Contains(stderr.String(), p.cfg.FatalSignature) {
		return nil, &ProcessError{Factor: factor, Capacity: capacity,
			Stderr: strings.TrimSpace(stderr.String())}
	}
	return readBlocks(resultPath)
}

func readBlocks(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tbs result: %w", err)
	}
	defer f.Close()

	var blocks []int
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		b, err := strconv.Atoi(line)
		if err != nil {
			return nil, &topology.FormatError{Path: path, Line: lineNo, Cause: topology.ErrMalformedLine, Msg: line}
		}
		blocks = append(blocks, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tbs result: %w", err)
	}
	return blocks, nil
}

// mapBlocks turns the TBS block vector, aligned with exchange node order,
// into an assignment to machine ids.
func mapBlocks(g *topology.Graph, blocks []int, ids []int) (partition.Assignment, error) {
	if len(blocks) != g.NodeCount() {
		return nil, &topology.FormatError{Cause: topology.ErrMalformedLine,
			Msg: fmt.Sprintf("tbs result has %d entries for %d nodes", len(blocks), g.NodeCount())}
	}
	a := make(partition.Assignment, len(blocks))
	for i, b := range blocks {
		if b < 0 || b >= len(ids) {
			return nil, &IntegrityError{Line: i + 1, Block: b, K: len(ids)}
		}
		a[g.NodeAt(i)] = ids[b]
	}
	return a, nil
}

func newResult(g *topology.Graph, a partition.Assignment, ids []int, factor float64) (*Result, error) {
	groups, err := partition.Group(g, a)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Assignment: a,
		Nodes:      make(map[int][]topology.NodeID, len(ids)),
		Subgraphs:  make(map[int]*topology.Graph, len(ids)),
		Factor:     factor,
	}
	for _, id := range ids {
		sub, ok := groups[id]
		if !ok {
			sub = g.Induced(nil)
		}
		res.Subgraphs[id] = sub
		res.Nodes[id] = sub.Nodes()
	}
	return res, nil
}

func distinct(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
