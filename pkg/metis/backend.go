package metis

import (
	"context"
	"fmt"
)

// DefaultIterations is the number of refinement iterations per split.
const DefaultIterations = 20

// Options configures one backend call.
type Options struct {
	Parts      int
	Iterations int
	Recursive  bool // recursive bisection instead of direct k-way
	Seed       *int // nil for the backend's deterministic default
}

// Backend partitions a 0-based contiguous adjacency list. The result has
// one part index in [0, Parts) per adjacency row.
type Backend interface {
	Partition(ctx context.Context, adj [][]int, opts Options) ([]int, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, adj [][]int, opts Options) ([]int, error)

// Partition calls f.
func (f BackendFunc) Partition(ctx context.Context, adj [][]int, opts Options) ([]int, error) {
	return f(ctx, adj, opts)
}

// ValidateInput checks what METIS would reject: parts outside [1, n],
// out of range or self referencing neighbours, and asymmetric adjacency.
func ValidateInput(adj [][]int, parts int) error {
	n := len(adj)
	if parts < 1 {
		return &InputError{Reason: fmt.Sprintf("%d parts requested", parts)}
	}
	if parts > n {
		return &InputError{Reason: fmt.Sprintf("%d parts requested for %d nodes", parts, n)}
	}

	type arc struct{ u, v int }
	arcs := make(map[arc]struct{})
	for u, row := range adj {
		for _, v := range row {
			if v < 0 || v >= n {
				return &InputError{Reason: fmt.Sprintf("node %d lists neighbour %d outside [0, %d)", u, v, n)}
			}
			if v == u {
				return &InputError{Reason: fmt.Sprintf("node %d lists itself", u)}
			}
			arcs[arc{u, v}] = struct{}{}
		}
	}
	for a := range arcs {
		if _, ok := arcs[arc{a.v, a.u}]; !ok {
			return &InputError{Reason: fmt.Sprintf("edge %d-%d is not symmetric", a.u, a.v)}
		}
	}
	return nil
}

func checkParts(parts []int, rows, k int) error {
	if len(parts) != rows {
		return fmt.Errorf("partitioner returned %d entries for %d nodes", len(parts), rows)
	}
	for i, p := range parts {
		if p < 0 || p >= k {
			return fmt.Errorf("partitioner put node %d in part %d outside [0, %d)", i, p, k)
		}
	}
	return nil
}
