// Package allocation chooses how many VMs, and which VM memory tier, one
// physical machine should run its share of the topology on.
package allocation

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-mvsplan/pkg/costmodel"
	"github.com/dd0wney/cluso-mvsplan/pkg/partition"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// Splitter partitions a graph into n parts, numbering them from offset.
// *metis.Splitter implements it.
type Splitter interface {
	Split(ctx context.Context, g *topology.Graph, n, offset int, random bool) (partition.Assignment, error)
}

// BuildCurve computes E_max(n) for n = 1..coreCount with deterministic
// splits. A graph cannot be split into more parts than it has nodes, so for
// n above the node count the value at the node count is repeated.
func BuildCurve(ctx context.Context, s Splitter, g *topology.Graph, coreCount int) (costmodel.Curve, error) {
	if coreCount < 1 {
		return nil, fmt.Errorf("core count %d: must be positive", coreCount)
	}
	curve := make(costmodel.Curve, coreCount)
	for n := 1; n <= coreCount; n++ {
		if n > 1 && n > g.NodeCount() {
			curve[n-1] = curve[n-2]
			continue
		}
		emax, err := maxEdgeCount(ctx, s, g, n, false)
		if err != nil {
			return nil, fmt.Errorf("E_max(%d): %w", n, err)
		}
		curve[n-1] = emax
	}
	return curve, nil
}

func maxEdgeCount(ctx context.Context, s Splitter, g *topology.Graph, n int, random bool) (int, error) {
	assignment, err := s.Split(ctx, g, n, 0, random)
	if err != nil {
		return 0, err
	}
	stats, err := partition.ComputeStats(g, assignment)
	if err != nil {
		return 0, err
	}
	return partition.MaxEdgeCount(stats), nil
}
