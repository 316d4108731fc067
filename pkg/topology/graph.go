// Package topology holds the in-memory model of an emulated network
// topology: routers are nodes, links are undirected edges.
//
// A Graph is immutable once built. Node declaration order is preserved
// because every partitioner maps nodes to contiguous indices in that
// order and maps the results back through it.
package topology

import (
	"fmt"
)

// NodeID identifies a router. Only uniqueness matters.
type NodeID int

// Edge is an undirected link in canonical form (U < V).
type Edge struct {
	U, V NodeID
}

// NewEdge returns the canonical form of the link between a and b.
func NewEdge(a, b NodeID) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{U: a, V: b}
}

// Graph is an ordered node list with symmetric adjacency.
type Graph struct {
	nodes []NodeID
	index map[NodeID]int
	adj   map[NodeID][]NodeID
	edges int
}

// NewGraph builds a graph from declared nodes and undirected edges.
// Duplicate edges collapse into one. Duplicate nodes, self loops and
// edges touching undeclared nodes are rejected.
func NewGraph(nodes []NodeID, edges []Edge) (*Graph, error) {
	g := newEmptyGraph(len(nodes))
	for _, n := range nodes {
		if err := g.addNode(n); err != nil {
			return nil, err
		}
	}
	seen := make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		if err := g.addEdge(e.U, e.V, seen); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func newEmptyGraph(capacity int) *Graph {
	return &Graph{
		nodes: make([]NodeID, 0, capacity),
		index: make(map[NodeID]int, capacity),
		adj:   make(map[NodeID][]NodeID, capacity),
	}
}

func (g *Graph) addNode(n NodeID) error {
	if _, dup := g.index[n]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, n)
	}
	g.index[n] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.adj[n] = nil
	return nil
}

func (g *Graph) addEdge(u, v NodeID, seen map[Edge]struct{}) error {
	if u == v {
		return fmt.Errorf("%w: %d", ErrSelfLoop, u)
	}
	if _, ok := g.index[u]; !ok {
		return fmt.Errorf("%w: %d", ErrUndeclaredNode, u)
	}
	if _, ok := g.index[v]; !ok {
		return fmt.Errorf("%w: %d", ErrUndeclaredNode, v)
	}
	e := NewEdge(u, v)
	if _, dup := seen[e]; dup {
		return nil
	}
	seen[e] = struct{}{}
	g.adj[u] = append(g.adj[u], v)
	g.adj[v] = append(g.adj[v], u)
	g.edges++
	return nil
}

// NodeCount returns the number of declared nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes returns a copy of the nodes in declaration order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeAt returns the i-th declared node.
func (g *Graph) NodeAt(i int) NodeID {
	return g.nodes[i]
}

// Index returns the 0-based declaration index of n.
func (g *Graph) Index(n NodeID) (int, bool) {
	i, ok := g.index[n]
	return i, ok
}

// Contains reports whether n is declared.
func (g *Graph) Contains(n NodeID) bool {
	_, ok := g.index[n]
	return ok
}

// Neighbors returns the neighbours of n in insertion order.
// The returned slice must not be modified.
func (g *Graph) Neighbors(n NodeID) []NodeID {
	return g.adj[n]
}

// Degree returns the number of neighbours of n.
func (g *Graph) Degree(n NodeID) int {
	return len(g.adj[n])
}

// Edges enumerates every undirected edge once, in canonical order:
// nodes in declaration order, neighbours in insertion order, U < V.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	g.EachEdge(func(e Edge) {
		out = append(out, e)
	})
	return out
}

// EachEdge calls fn for every undirected edge in canonical order.
func (g *Graph) EachEdge(fn func(Edge)) {
	for _, u := range g.nodes {
		for _, v := range g.adj[u] {
			if u < v {
				fn(Edge{U: u, V: v})
			}
		}
	}
}

// Induced returns the sub-graph on nodes, keeping only edges whose two
// endpoints are both in nodes. Node order follows the argument. Nodes
// unknown to g and repeated nodes are skipped.
func (g *Graph) Induced(nodes []NodeID) *Graph {
	sub := newEmptyGraph(len(nodes))
	for _, n := range nodes {
		if !g.Contains(n) || sub.Contains(n) {
			continue
		}
		_ = sub.addNode(n)
	}
	for _, u := range sub.nodes {
		for _, v := range g.adj[u] {
			if u < v && sub.Contains(v) {
				sub.adj[u] = append(sub.adj[u], v)
				sub.adj[v] = append(sub.adj[v], u)
				sub.edges++
			}
		}
	}
	return sub
}

// Adjacency returns the contiguous 0-based adjacency view used by the
// external partitioners: entry i lists the indices of NodeAt(i)'s
// neighbours.
func (g *Graph) Adjacency() [][]int {
	out := make([][]int, len(g.nodes))
	for i, u := range g.nodes {
		row := make([]int, len(g.adj[u]))
		for j, v := range g.adj[u] {
			row[j] = g.index[v]
		}
		out[i] = row
	}
	return out
}
