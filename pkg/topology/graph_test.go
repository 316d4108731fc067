package topology

import (
	"errors"
	"reflect"
	"testing"
)

func mustGraph(t testing.TB, nodes []int, edges [][2]int) *Graph {
	t.Helper()
	ns := make([]NodeID, len(nodes))
	for i, n := range nodes {
		ns[i] = NodeID(n)
	}
	es := make([]Edge, len(edges))
	for i, e := range edges {
		es[i] = Edge{U: NodeID(e[0]), V: NodeID(e[1])}
	}
	g, err := NewGraph(ns, es)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func ring4(t testing.TB) *Graph {
	return mustGraph(t, []int{1, 2, 3, 4}, [][2]int{{1, 2}, {2, 3}, {3, 4}, {4, 1}})
}

func TestNewEdge_Canonical(t *testing.T) {
	if got := NewEdge(5, 2); got != (Edge{U: 2, V: 5}) {
		t.Errorf("NewEdge(5, 2) = %v, want {2 5}", got)
	}
	if got := NewEdge(2, 5); got != (Edge{U: 2, V: 5}) {
		t.Errorf("NewEdge(2, 5) = %v, want {2 5}", got)
	}
}

func TestNewGraph_Symmetric(t *testing.T) {
	g := ring4(t)

	if g.NodeCount() != 4 {
		t.Errorf("NodeCount() = %d, want 4", g.NodeCount())
	}
	if g.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4", g.EdgeCount())
	}
	for _, u := range g.Nodes() {
		for _, v := range g.Neighbors(u) {
			found := false
			for _, w := range g.Neighbors(v) {
				if w == u {
					found = true
				}
			}
			if !found {
				t.Errorf("edge %d-%d is not symmetric", u, v)
			}
		}
	}
}

func TestNewGraph_DuplicateEdgesCollapse(t *testing.T) {
	g := mustGraph(t, []int{1, 2}, [][2]int{{1, 2}, {2, 1}, {1, 2}})
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if g.Degree(1) != 1 || g.Degree(2) != 1 {
		t.Errorf("degrees = %d/%d, want 1/1", g.Degree(1), g.Degree(2))
	}
}

func TestNewGraph_Errors(t *testing.T) {
	tests := []struct {
		name  string
		nodes []NodeID
		edges []Edge
		want  error
	}{
		{"duplicate node", []NodeID{1, 1}, nil, ErrDuplicateNode},
		{"self loop", []NodeID{1, 2}, []Edge{{1, 1}}, ErrSelfLoop},
		{"undeclared node", []NodeID{1, 2}, []Edge{{1, 3}}, ErrUndeclaredNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.nodes, tt.edges)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewGraph() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGraph_NodeOrderPreserved(t *testing.T) {
	g := mustGraph(t, []int{30, 10, 20}, [][2]int{{10, 30}})
	want := []NodeID{30, 10, 20}
	if got := g.Nodes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if i, ok := g.Index(20); !ok || i != 2 {
		t.Errorf("Index(20) = %d, %v; want 2, true", i, ok)
	}
	if g.NodeAt(0) != 30 {
		t.Errorf("NodeAt(0) = %d, want 30", g.NodeAt(0))
	}
	if _, ok := g.Index(99); ok {
		t.Error("Index(99) should report missing")
	}
}

func TestGraph_NodesReturnsCopy(t *testing.T) {
	g := ring4(t)
	nodes := g.Nodes()
	nodes[0] = 42
	if g.NodeAt(0) != 1 {
		t.Error("mutating Nodes() result changed the graph")
	}
}

func TestGraph_EdgesCanonicalOrder(t *testing.T) {
	g := ring4(t)
	want := []Edge{{1, 2}, {1, 4}, {2, 3}, {3, 4}}
	if got := g.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
}

func TestGraph_Induced(t *testing.T) {
	g := ring4(t)
	sub := g.Induced([]NodeID{3, 1, 2, 99, 2})

	if got, want := sub.Nodes(), []NodeID{3, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Induced nodes = %v, want %v", got, want)
	}
	if sub.EdgeCount() != 2 {
		t.Errorf("Induced EdgeCount() = %d, want 2", sub.EdgeCount())
	}
	if sub.Degree(3) != 1 {
		t.Errorf("Induced Degree(3) = %d, want 1", sub.Degree(3))
	}
	if g.EdgeCount() != 4 {
		t.Error("Induced mutated the parent graph")
	}
}

func TestGraph_Adjacency(t *testing.T) {
	g := mustGraph(t, []int{7, 8, 9}, [][2]int{{7, 8}, {8, 9}})
	want := [][]int{{1}, {0, 2}, {1}}
	if got := g.Adjacency(); !reflect.DeepEqual(got, want) {
		t.Errorf("Adjacency() = %v, want %v", got, want)
	}
}
