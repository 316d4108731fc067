package topology

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// WriteMETIS writes g in the METIS graph format read by gpmetis and the
// TBS partitioner: a "n m" header followed by one line per node listing
// the 1-based indices of its neighbours. Line i (1-based) is NodeAt(i-1).
func WriteMETIS(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", g.NodeCount(), g.EdgeCount())
	for _, row := range g.Adjacency() {
		writeIndexLine(bw, row)
	}
	return bw.Flush()
}

// WriteAdjacencyMETIS writes a 0-based adjacency list in METIS format.
// The edge count in the header is half the number of adjacency entries.
func WriteAdjacencyMETIS(w io.Writer, adj [][]int) error {
	entries := 0
	for _, row := range adj {
		entries += len(row)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", len(adj), entries/2)
	for _, row := range adj {
		writeIndexLine(bw, row)
	}
	return bw.Flush()
}

func writeIndexLine(bw *bufio.Writer, row []int) {
	for j, idx := range row {
		if j > 0 {
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.Itoa(idx + 1))
	}
	bw.WriteByte('\n')
}

// WriteMETISFile writes the exchange file at path, creating its directory.
func WriteMETISFile(path string, g *Graph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create exchange dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create exchange file: %w", err)
	}
	if err := WriteMETIS(f, g); err != nil {
		f.Close()
		return fmt.Errorf("write exchange file: %w", err)
	}
	return f.Close()
}
