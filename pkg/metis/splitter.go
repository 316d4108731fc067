// Package metis splits a graph into balanced, minimum-cut parts with an
// external multilevel k-way partitioner.
package metis

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
	"github.com/dd0wney/cluso-mvsplan/pkg/metrics"
	"github.com/dd0wney/cluso-mvsplan/pkg/partition"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// DefaultMaxAttempts bounds randomized retries on rejected input.
const DefaultMaxAttempts = 32

// Config tunes a Splitter. Zero values select the defaults.
type Config struct {
	Iterations  int
	MaxAttempts int
}

// Splitter is the VM level partitioner. It is safe for concurrent use when
// its Backend and SeedSource are.
type Splitter struct {
	backend Backend
	seeds   SeedSource
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewSplitter creates a splitter. A nil seeds draws from a fresh rngstream;
// a nil logger or registry disables logging or metrics.
func NewSplitter(backend Backend, seeds SeedSource, cfg Config, logger logging.Logger, reg *metrics.Registry) *Splitter {
	if seeds == nil {
		seeds = NewStreamSeeds("metis-splitter")
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Splitter{
		backend: backend,
		seeds:   seeds,
		cfg:     cfg,
		logger:  logging.OrNop(logger).With(logging.Component("metis")),
		metrics: reg,
	}
}

// Split partitions g into n parts and returns node -> part + offset.
//
// With n == 1 every node maps to offset and the backend is not called.
// When random is set each attempt uses a fresh seed and input errors are
// retried up to MaxAttempts; otherwise the seed is omitted and the first
// error is returned as is.
func (s *Splitter) Split(ctx context.Context, g *topology.Graph, n, offset int, random bool) (partition.Assignment, error) {
	if n < 1 {
		return nil, &InputError{Reason: fmt.Sprintf("%d parts requested", n)}
	}
	if n == 1 {
		return partition.Uniform(g, offset), nil
	}

	adj := g.Adjacency()
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opts := Options{Parts: n, Iterations: s.cfg.Iterations, Recursive: true}
		fields := []logging.Field{logging.Partitions(n), logging.Attempt(attempt), logging.Count(len(adj))}
		if random {
			seed := s.seeds.Next()
			opts.Seed = &seed
			fields = append(fields, logging.Seed(seed))
		}

		timer := logging.StartTimer(s.logger, "metis split", fields...)
		parts, err := s.backend.Partition(ctx, adj, opts)
		if err == nil {
			err = checkParts(parts, len(adj), n)
		}
		if err == nil {
			s.metrics.RecordPartitionerCall(metrics.LevelVM, "ok", timer.EndDebug())
			return partition.FromIndices(g, parts, offset)
		}

		if !IsInputError(err) {
			s.metrics.RecordPartitionerCall(metrics.LevelVM, "error", timer.EndError(err))
			return nil, err
		}
		s.metrics.RecordPartitionerCall(metrics.LevelVM, "input_error", timer.EndDebug())
		if !random {
			return nil, err
		}
		lastErr = err
		s.metrics.RecordPartitionerRetry(metrics.LevelVM)
		s.logger.Warn("metis rejected input, retrying with a new seed",
			logging.Attempt(attempt), logging.Error(err))
	}
	return nil, fmt.Errorf("%w: %d attempts for %d parts: %w", ErrAttemptsExhausted, s.cfg.MaxAttempts, n, lastErr)
}

// MaxAttempts returns the retry bound in effect.
func (s *Splitter) MaxAttempts() int {
	return s.cfg.MaxAttempts
}
