package partition

import (
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// Stats is the accounting of one partition.
//
// EdgeCount counts every edge touching the partition: internal edges once,
// cross edges once on each side. DanglingEdges counts only the cross edges.
// A cross edge therefore lands in both counters of both partitions; the cost
// model consumes EdgeCount as the per-partition processing load, so this is
// not a double count to be fixed.
type Stats struct {
	NodeCount     int
	EdgeCount     int
	DanglingEdges int
}

// ComputeStats builds one record per distinct partition id in assignment.
// A node of g missing from assignment yields ErrUnassignedNode.
func ComputeStats(g *topology.Graph, assignment Assignment) (map[int]Stats, error) {
	if err := assignment.Covers(g); err != nil {
		return nil, err
	}

	stats := make(map[int]Stats)
	for _, p := range assignment {
		stats[p] = Stats{}
	}
	for _, n := range g.Nodes() {
		s := stats[assignment[n]]
		s.NodeCount++
		stats[assignment[n]] = s
	}

	g.EachEdge(func(e topology.Edge) {
		pu, pv := assignment[e.U], assignment[e.V]
		su := stats[pu]
		su.EdgeCount++
		if pu == pv {
			stats[pu] = su
			return
		}
		su.DanglingEdges++
		stats[pu] = su

		sv := stats[pv]
		sv.EdgeCount++
		sv.DanglingEdges++
		stats[pv] = sv
	})
	return stats, nil
}

// MaxEdgeCount returns the largest EdgeCount, the E_max of one split.
func MaxEdgeCount(stats map[int]Stats) int {
	best := 0
	for _, s := range stats {
		if s.EdgeCount > best {
			best = s.EdgeCount
		}
	}
	return best
}

// Group splits g by assignment into induced sub-graphs keyed by partition
// id. Node order inside each sub-graph follows g.
func Group(g *topology.Graph, assignment Assignment) (map[int]*topology.Graph, error) {
	if err := assignment.Covers(g); err != nil {
		return nil, err
	}
	members := make(map[int][]topology.NodeID)
	for _, n := range g.Nodes() {
		p := assignment[n]
		members[p] = append(members[p], n)
	}
	out := make(map[int]*topology.Graph, len(members))
	for p, nodes := range members {
		out[p] = g.Induced(nodes)
	}
	return out, nil
}
