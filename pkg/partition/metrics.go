package partition

import (
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// Metrics contains partitioning quality metrics. Slices are aligned with
// Parts.
type Metrics struct {
	Parts          []int
	PartitionSizes []int   // Nodes per partition
	EdgeCuts       []int   // Cut edges per partition
	LoadBalance    float64 // 0-1 (1 = perfect balance)
	CutRatio       float64 // Fraction of edges that are cuts
}

// ComputeMetrics analyzes partition quality.
func ComputeMetrics(g *topology.Graph, assignment Assignment) (*Metrics, error) {
	stats, err := ComputeStats(g, assignment)
	if err != nil {
		return nil, err
	}

	parts := assignment.Parts()
	m := &Metrics{
		Parts:          parts,
		PartitionSizes: make([]int, len(parts)),
		EdgeCuts:       make([]int, len(parts)),
	}
	totalCuts := 0
	for i, p := range parts {
		m.PartitionSizes[i] = stats[p].NodeCount
		m.EdgeCuts[i] = stats[p].DanglingEdges
		totalCuts += stats[p].DanglingEdges
	}

	if len(parts) > 0 {
		avgSize := float64(g.NodeCount()) / float64(len(parts))
		variance := 0.0
		for _, size := range m.PartitionSizes {
			diff := float64(size) - avgSize
			variance += diff * diff
		}
		variance /= float64(len(parts))
		m.LoadBalance = 1.0
		if avgSize > 0 {
			m.LoadBalance = 1.0 / (1.0 + variance/avgSize)
		}
	}

	// each cut edge shows up on both sides
	if g.EdgeCount() > 0 {
		m.CutRatio = float64(totalCuts/2) / float64(g.EdgeCount())
	}
	return m, nil
}

// NodeMigration represents a suggested rebalancing operation.
type NodeMigration struct {
	FromPartition int
	NodeCount     int
}

// Overloaded lists partitions holding more than (1+tolerance) times the
// mean partition size, with the excess node count.
func Overloaded(m *Metrics, tolerance float64) []NodeMigration {
	if len(m.Parts) == 0 {
		return nil
	}
	total := 0
	for _, size := range m.PartitionSizes {
		total += size
	}
	avg := float64(total) / float64(len(m.Parts))

	var out []NodeMigration
	for i, size := range m.PartitionSizes {
		if float64(size) > avg*(1+tolerance) {
			out = append(out, NodeMigration{
				FromPartition: m.Parts[i],
				NodeCount:     size - int(avg),
			})
		}
	}
	return out
}
