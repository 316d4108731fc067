// Package partition holds node to partition assignments and the
// per-partition accounting consumed by the cost model.
package partition

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// ErrUnassignedNode is returned when a graph node has no partition id.
var ErrUnassignedNode = topology.ErrUnassignedNode

// Assignment maps each node to its partition id. Ids are contiguous within
// one partitioning call, optionally shifted by an offset when partitions
// are composed across levels.
type Assignment map[topology.NodeID]int

// Uniform assigns every node of g to id.
func Uniform(g *topology.Graph, id int) Assignment {
	a := make(Assignment, g.NodeCount())
	for _, n := range g.Nodes() {
		a[n] = id
	}
	return a
}

// FromIndices maps the i-th node of g to parts[i] + offset.
func FromIndices(g *topology.Graph, parts []int, offset int) (Assignment, error) {
	if len(parts) != g.NodeCount() {
		return nil, fmt.Errorf("partition vector has %d entries for %d nodes", len(parts), g.NodeCount())
	}
	a := make(Assignment, len(parts))
	for i, p := range parts {
		a[g.NodeAt(i)] = p + offset
	}
	return a, nil
}

// Parts returns the distinct partition ids in ascending order.
func (a Assignment) Parts() []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, p := range a {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			ids = append(ids, p)
		}
	}
	slices.Sort(ids)
	return ids
}

// Covers returns ErrUnassignedNode for the first node of g missing from a.
func (a Assignment) Covers(g *topology.Graph) error {
	for _, n := range g.Nodes() {
		if _, ok := a[n]; !ok {
			return fmt.Errorf("%w: %d", ErrUnassignedNode, n)
		}
	}
	return nil
}

// Merge copies every entry of other into a.
func (a Assignment) Merge(other Assignment) {
	for n, p := range other {
		a[n] = p
	}
}
