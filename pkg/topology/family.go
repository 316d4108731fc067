package topology

import (
	"fmt"
	"strconv"
	"strings"
)

// Family describes a generated topology shape whose node and link counts
// have a closed form. Params holds the generator arguments.
type Family struct {
	Kind   string
	Params []int
}

// Known family kinds.
const (
	FamilyIsolated     = "isolated"
	FamilySudoIsolated = "sudoisolated"
	FamilyPairs        = "pairs"
	FamilyChain        = "chain"
	FamilyStar         = "star"
	FamilyFullMesh     = "fullmesh"
	FamilyTrie         = "trie"
	FamilyGrid         = "grid"
	FamilyClos         = "clos"
)

var familyArity = map[string]int{
	FamilyIsolated:     1,
	FamilySudoIsolated: 2,
	FamilyPairs:        1,
	FamilyChain:        1,
	FamilyStar:         1,
	FamilyFullMesh:     1,
	FamilyTrie:         2,
	FamilyGrid:         2,
	FamilyClos:         1,
}

// ParseFamily parses "grid_10_10", "clos_8" or "chain_100".
func ParseFamily(s string) (Family, error) {
	parts := strings.Split(s, "_")
	kind := strings.ToLower(parts[0])
	want, ok := familyArity[kind]
	if !ok {
		return Family{}, fmt.Errorf("unknown topology family %q", parts[0])
	}
	if len(parts)-1 != want {
		return Family{}, fmt.Errorf("family %s takes %d parameters, got %d", kind, want, len(parts)-1)
	}
	f := Family{Kind: kind, Params: make([]int, want)}
	for i, p := range parts[1:] {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return Family{}, fmt.Errorf("family %s: bad parameter %q", kind, p)
		}
		f.Params[i] = v
	}
	return f, nil
}

// String renders the family the way ParseFamily reads it.
func (f Family) String() string {
	var b strings.Builder
	b.WriteString(f.Kind)
	for _, p := range f.Params {
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// Counts returns the node and link counts the generator produces.
func (f Family) Counts() (nodes, links int, err error) {
	if want, ok := familyArity[f.Kind]; !ok || len(f.Params) != want {
		return 0, 0, fmt.Errorf("invalid family %v", f)
	}
	p := f.Params
	switch f.Kind {
	case FamilyIsolated:
		return p[0], 0, nil
	case FamilySudoIsolated:
		return p[1] + 2, p[0], nil
	case FamilyPairs:
		return 2 * p[0], p[0], nil
	case FamilyChain, FamilyStar:
		return p[0], max(p[0]-1, 0), nil
	case FamilyFullMesh:
		return p[0], p[0] * (p[0] - 1) / 2, nil
	case FamilyTrie:
		return p[0], max(p[0]-1, 0), nil
	case FamilyGrid:
		return p[0] * p[1], 2 * p[0] * p[1], nil
	case FamilyClos:
		k := p[0]
		half := k / 2
		superspine := half * half
		spine := half * k
		leaf := half * k
		client := leaf * k
		nodes = (5*k*k + k*k*k) / 4
		links = ((superspine+spine+leaf)*k + client) / 2
		return nodes, links, nil
	}
	return 0, 0, fmt.Errorf("invalid family %v", f)
}

// CheckFamily verifies that g has the node and link counts of f.
func CheckFamily(g *Graph, f Family) error {
	nodes, links, err := f.Counts()
	if err != nil {
		return err
	}
	if g.NodeCount() != nodes || g.EdgeCount() != links {
		return fmt.Errorf("topology is not %s: got %d nodes/%d links, want %d/%d",
			f, g.NodeCount(), g.EdgeCount(), nodes, links)
	}
	return nil
}
