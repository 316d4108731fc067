package topology

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultLinkIDBase is the first cross-partition link id. Link ids double
// as VXLAN ids on the emulation hosts, so they start above 4096.
const DefaultLinkIDBase = 4097

// ErrUnassignedNode is returned when a graph node has no partition.
var ErrUnassignedNode = errors.New("node has no partition assignment")

var externalToken = regexp.MustCompile(`^(-?\d+)_external_(\d+)_(\d+)$`)

// DanglingEdge is one side of a cross-partition link as written into the
// sub-topology of the partition owning Local.
type DanglingEdge struct {
	Local         NodeID
	Peer          NodeID
	PeerPartition int
	LinkID        int
}

// Token renders the synthetic peer token "<peer>_external_<part>_<link>".
func (d DanglingEdge) Token() string {
	return fmt.Sprintf("%d_external_%d_%d", d.Peer, d.PeerPartition, d.LinkID)
}

// Link records both ends of a cross-partition edge.
type Link struct {
	ID         int
	U, V       NodeID
	UPartition int
	VPartition int
}

// LinkTable maps link ids to the edges they stand for.
type LinkTable map[int]Link

// SubTopology is the share of a topology owned by one partition.
type SubTopology struct {
	Partition int // -1 when unknown (parsed without context)
	Nodes     []NodeID
	Edges     []Edge
	Dangling  []DanglingEdge
}

// BuildSubTopologies splits g by assignment. Sub-topologies are returned
// in ascending partition order; link ids are handed out in canonical edge
// order starting at linkIDBase.
func BuildSubTopologies(g *Graph, assignment map[NodeID]int, linkIDBase int) ([]*SubTopology, LinkTable, error) {
	byPart := make(map[int]*SubTopology)
	for _, n := range g.nodes {
		p, ok := assignment[n]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnassignedNode, n)
		}
		st, ok := byPart[p]
		if !ok {
			st = &SubTopology{Partition: p}
			byPart[p] = st
		}
		st.Nodes = append(st.Nodes, n)
	}

	links := make(LinkTable)
	next := linkIDBase
	g.EachEdge(func(e Edge) {
		pu, pv := assignment[e.U], assignment[e.V]
		if pu == pv {
			byPart[pu].Edges = append(byPart[pu].Edges, e)
			return
		}
		id := next
		next++
		links[id] = Link{ID: id, U: e.U, V: e.V, UPartition: pu, VPartition: pv}
		byPart[pu].Dangling = append(byPart[pu].Dangling, DanglingEdge{Local: e.U, Peer: e.V, PeerPartition: pv, LinkID: id})
		byPart[pv].Dangling = append(byPart[pv].Dangling, DanglingEdge{Local: e.V, Peer: e.U, PeerPartition: pu, LinkID: id})
	})

	parts := make([]int, 0, len(byPart))
	for p := range byPart {
		parts = append(parts, p)
	}
	sort.Ints(parts)

	out := make([]*SubTopology, 0, len(parts))
	for _, p := range parts {
		out = append(out, byPart[p])
	}
	return out, links, nil
}

// WriteTo writes the sub-topology: node line, internal edges, then
// dangling edges with synthetic peer tokens.
func (s *SubTopology) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	writeNodeLine(bw, s.Nodes)
	for _, e := range s.Edges {
		fmt.Fprintf(bw, "%d %d\n", e.U, e.V)
	}
	for _, d := range s.Dangling {
		fmt.Fprintf(bw, "%d %s\n", d.Local, d.Token())
	}
	err := bw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// SubTopologyPath inserts ".sub<part>" before the last extension of base:
// grid_10_10.txt becomes grid_10_10.sub3.txt and clos.v2.txt becomes
// clos.v2.sub3.txt. Only the final extension is kept after the marker.
func SubTopologyPath(base string, part int) string {
	dir, file := filepath.Split(base)
	elems := strings.Split(file, ".")
	if len(elems) == 1 {
		elems = append(elems, fmt.Sprintf("sub%d", part))
	} else {
		last := elems[len(elems)-1]
		elems = append(elems[:len(elems)-1], fmt.Sprintf("sub%d", part), last)
	}
	return filepath.Join(dir, strings.Join(elems, "."))
}

// SubgraphOptions controls SaveSubgraphs.
type SubgraphOptions struct {
	// PathFor names the file of a partition. When nil, SubTopologyPath
	// of BasePath is used.
	PathFor    func(part int) string
	BasePath   string
	LinkIDBase int // DefaultLinkIDBase when zero
}

// SaveResult lists what SaveSubgraphs wrote.
type SaveResult struct {
	Paths map[int]string
	Links LinkTable
}

// SaveSubgraphs writes one sub-topology file per distinct partition id.
func SaveSubgraphs(g *Graph, assignment map[NodeID]int, opts SubgraphOptions) (*SaveResult, error) {
	base := opts.LinkIDBase
	if base == 0 {
		base = DefaultLinkIDBase
	}
	pathFor := opts.PathFor
	if pathFor == nil {
		if opts.BasePath == "" {
			return nil, errors.New("save subgraphs: neither PathFor nor BasePath set")
		}
		pathFor = func(part int) string { return SubTopologyPath(opts.BasePath, part) }
	}

	subs, links, err := BuildSubTopologies(g, assignment, base)
	if err != nil {
		return nil, err
	}

	res := &SaveResult{Paths: make(map[int]string, len(subs)), Links: links}
	for _, s := range subs {
		p := pathFor(s.Partition)
		if err := writeSubTopologyFile(p, s); err != nil {
			return nil, err
		}
		res.Paths[s.Partition] = p
	}
	return res, nil
}

func writeSubTopologyFile(path string, s *SubTopology) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sub-topology dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sub-topology %s: %w", path, err)
	}
	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write sub-topology %s: %w", path, err)
	}
	return f.Close()
}

// LoadSubTopology reads a file written by SaveSubgraphs.
func LoadSubTopology(path string, part int) (*SubTopology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sub-topology: %w", err)
	}
	defer f.Close()

	s, err := parseSubTopology(f, path)
	if err != nil {
		return nil, err
	}
	s.Partition = part
	return s, nil
}

// ParseSubTopology reads a sub-topology from r. Partition is left at -1.
func ParseSubTopology(r io.Reader) (*SubTopology, error) {
	return parseSubTopology(r, "")
}

func parseSubTopology(r io.Reader, path string) (*SubTopology, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	s := &SubTopology{Partition: -1}
	local := make(map[NodeID]struct{})
	declared := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if !declared {
			declared = true
			for _, tok := range fields {
				id, err := parseNodeID(tok)
				if err != nil {
					return nil, &FormatError{Path: path, Line: lineNo, Cause: err}
				}
				if _, dup := local[id]; dup {
					return nil, &FormatError{Path: path, Line: lineNo, Cause: ErrDuplicateNode, Msg: tok}
				}
				local[id] = struct{}{}
				s.Nodes = append(s.Nodes, id)
			}
			continue
		}

		if len(fields) != 2 {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: ErrMalformedLine,
				Msg: fmt.Sprintf("expected 2 tokens, got %d", len(fields))}
		}
		u, err := parseNodeID(fields[0])
		if err != nil {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: err}
		}
		if _, ok := local[u]; !ok {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: ErrUndeclaredNode, Msg: fields[0]}
		}

		if m := externalToken.FindStringSubmatch(fields[1]); m != nil {
			nums, err := atoiAll(m[1:])
			if err != nil {
				return nil, &FormatError{Path: path, Line: lineNo, Cause: ErrMalformedLine, Msg: fields[1]}
			}
			peer, part, link := nums[0], nums[1], nums[2]
			s.Dangling = append(s.Dangling, DanglingEdge{
				Local: u, Peer: NodeID(peer), PeerPartition: part, LinkID: link,
			})
			continue
		}

		v, err := parseNodeID(fields[1])
		if err != nil {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: err}
		}
		if _, ok := local[v]; !ok {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: ErrUndeclaredNode, Msg: fields[1]}
		}
		if u == v {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: ErrSelfLoop, Msg: fields[0]}
		}
		s.Edges = append(s.Edges, NewEdge(u, v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sub-topology: %w", err)
	}
	if !declared {
		return nil, &FormatError{Path: path, Cause: ErrEmptyTopology}
	}
	return s, nil
}

// Merge reassembles sub-topologies into one graph, pairing dangling edges
// through their link ids. Every link id must appear exactly twice with
// mirrored endpoints.
func Merge(subs ...*SubTopology) (*Graph, error) {
	var nodes []NodeID
	var edges []Edge
	type side struct {
		d    DanglingEdge
		part int
	}
	byLink := make(map[int][]side)

	for _, s := range subs {
		nodes = append(nodes, s.Nodes...)
		edges = append(edges, s.Edges...)
		for _, d := range s.Dangling {
			byLink[d.LinkID] = append(byLink[d.LinkID], side{d: d, part: s.Partition})
		}
	}

	ids := make([]int, 0, len(byLink))
	for id := range byLink {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		sides := byLink[id]
		if len(sides) != 2 {
			return nil, &FormatError{Cause: ErrUnmatchedLink, Msg: fmt.Sprintf("link %d seen %d times", id, len(sides))}
		}
		a, b := sides[0], sides[1]
		if a.d.Local != b.d.Peer || b.d.Local != a.d.Peer {
			return nil, &FormatError{Cause: ErrUnmatchedLink, Msg: fmt.Sprintf("link %d endpoints disagree", id)}
		}
		if a.part >= 0 && b.part >= 0 && (a.d.PeerPartition != b.part || b.d.PeerPartition != a.part) {
			return nil, &FormatError{Cause: ErrUnmatchedLink, Msg: fmt.Sprintf("link %d partitions disagree", id)}
		}
		edges = append(edges, NewEdge(a.d.Local, b.d.Local))
	}

	g, err := NewGraph(nodes, edges)
	if err != nil {
		return nil, &FormatError{Cause: causeOf(err), Msg: "merge"}
	}
	return g, nil
}

func atoiAll(toks []string) ([]int, error) {
	out := make([]int, len(toks))
	for i, tok := range toks {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
