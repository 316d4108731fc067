package topology

import "testing"

func TestFamily_Counts(t *testing.T) {
	tests := []struct {
		family string
		nodes  int
		links  int
	}{
		{"isolated_5", 5, 0},
		{"sudoisolated_3_10", 12, 3},
		{"pairs_4", 8, 4},
		{"chain_10", 10, 9},
		{"star_6", 6, 5},
		{"fullmesh_5", 5, 10},
		{"trie_15_2", 15, 14},
		{"grid_10_10", 100, 200},
		{"clos_4", 36, 56},
		{"clos_8", 208, 448},
	}

	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			f, err := ParseFamily(tt.family)
			if err != nil {
				t.Fatalf("ParseFamily() error = %v", err)
			}
			if f.String() != tt.family {
				t.Errorf("String() = %q, want %q", f.String(), tt.family)
			}
			nodes, links, err := f.Counts()
			if err != nil {
				t.Fatalf("Counts() error = %v", err)
			}
			if nodes != tt.nodes || links != tt.links {
				t.Errorf("Counts() = %d/%d, want %d/%d", nodes, links, tt.nodes, tt.links)
			}
		})
	}
}

func TestParseFamily_Errors(t *testing.T) {
	for _, s := range []string{"torus_4", "grid_10", "chain_x", "chain_-1", ""} {
		if _, err := ParseFamily(s); err == nil {
			t.Errorf("ParseFamily(%q) succeeded", s)
		}
	}
}

func TestCheckFamily(t *testing.T) {
	chain := mustGraph(t, []int{1, 2, 3, 4}, [][2]int{{1, 2}, {2, 3}, {3, 4}})

	if err := CheckFamily(chain, Family{Kind: FamilyChain, Params: []int{4}}); err != nil {
		t.Errorf("CheckFamily(chain_4) error = %v", err)
	}
	if err := CheckFamily(ring4(t), Family{Kind: FamilyChain, Params: []int{4}}); err == nil {
		t.Error("CheckFamily() accepted a ring as chain_4")
	}
	if err := CheckFamily(chain, Family{Kind: FamilyGrid, Params: []int{2}}); err == nil {
		t.Error("CheckFamily() accepted a family with the wrong arity")
	}
}
