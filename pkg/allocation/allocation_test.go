package allocation

import (
	"context"
	"sync"
	"testing"

	"github.com/dd0wney/cluso-mvsplan/pkg/costmodel"
	"github.com/dd0wney/cluso-mvsplan/pkg/partition"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

func chainGraph(t testing.TB, n int) *topology.Graph {
	t.Helper()
	nodes := make([]topology.NodeID, n)
	var edges []topology.Edge
	for i := 0; i < n; i++ {
		nodes[i] = topology.NodeID(i + 1)
		if i > 0 {
			edges = append(edges, topology.NewEdge(topology.NodeID(i), topology.NodeID(i+1)))
		}
	}
	g, err := topology.NewGraph(nodes, edges)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

// blockSplitter puts node index i into part i*n/len, so contiguous runs of
// the node order share a part. It records every requested n.
type blockSplitter struct {
	mu     sync.Mutex
	calls  []int
	random []bool
	err    error
}

func (s *blockSplitter) Split(_ context.Context, g *topology.Graph, n, offset int, random bool) (partition.Assignment, error) {
	s.mu.Lock()
	s.calls = append(s.calls, n)
	s.random = append(s.random, random)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	a := make(partition.Assignment, g.NodeCount())
	for i, node := range g.Nodes() {
		a[node] = i*n/g.NodeCount() + offset
	}
	return a, nil
}

func twoTierParams(t testing.TB) costmodel.Params {
	t.Helper()
	theta, err := costmodel.NewTheta(map[int]float64{8: 2.0, 16: 3.5})
	if err != nil {
		t.Fatalf("NewTheta: %v", err)
	}
	return costmodel.Params{X: 0.00329, Y: 0.03918, Z: 0.0127, Theta: theta}
}
