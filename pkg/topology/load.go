package topology

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxLineBytes bounds the node declaration line, which lists every node.
const maxLineBytes = 64 << 20

// Load reads a topology file: the first line declares every node id,
// each following line is one undirected edge "u v".
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topology: %w", err)
	}
	defer f.Close()

	g, err := parse(f, path)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Parse reads a topology from r. See Load for the format.
func Parse(r io.Reader) (*Graph, error) {
	return parse(r, "")
}

func parse(r io.Reader, path string) (*Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var g *Graph
	seen := make(map[Edge]struct{})
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		if g == nil {
			g = newEmptyGraph(len(fields))
			for _, tok := range fields {
				id, err := parseNodeID(tok)
				if err != nil {
					return nil, &FormatError{Path: path, Line: lineNo, Cause: err}
				}
				if err := g.addNode(id); err != nil {
					return nil, &FormatError{Path: path, Line: lineNo, Cause: ErrDuplicateNode, Msg: tok}
				}
			}
			continue
		}

		if len(fields) != 2 {
			return nil, &FormatError{
				Path:  path,
				Line:  lineNo,
				Cause: ErrMalformedLine,
				Msg:   fmt.Sprintf("expected 2 tokens, got %d", len(fields)),
			}
		}
		u, err := parseNodeID(fields[0])
		if err != nil {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: err}
		}
		v, err := parseNodeID(fields[1])
		if err != nil {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: err}
		}
		if err := g.addEdge(u, v, seen); err != nil {
			return nil, &FormatError{Path: path, Line: lineNo, Cause: causeOf(err), Msg: fmt.Sprintf("%d %d", u, v)}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	if g == nil || g.NodeCount() == 0 {
		return nil, &FormatError{Path: path, Cause: ErrEmptyTopology}
	}
	return g, nil
}

func parseNodeID(tok string) (NodeID, error) {
	id, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNodeID, tok)
	}
	return NodeID(id), nil
}

// causeOf strips the detail added by addEdge so the FormatError carries
// the bare sentinel.
func causeOf(err error) error {
	for _, s := range []error{ErrSelfLoop, ErrUndeclaredNode, ErrDuplicateNode} {
		if errors.Is(err, s) {
			return s
		}
	}
	return err
}

// Write serialises g in the topology format read by Load.
func Write(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	writeNodeLine(bw, g.nodes)
	g.EachEdge(func(e Edge) {
		fmt.Fprintf(bw, "%d %d\n", e.U, e.V)
	})
	return bw.Flush()
}

func writeNodeLine(bw *bufio.Writer, nodes []NodeID) {
	for i, n := range nodes {
		if i > 0 {
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.Itoa(int(n)))
	}
	bw.WriteByte('\n')
}
