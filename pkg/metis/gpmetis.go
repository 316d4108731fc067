package metis

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// DefaultGpmetisBinary is looked up in PATH.
const DefaultGpmetisBinary = "gpmetis"

// Gpmetis runs the METIS command line partitioner. Each call works in its
// own temporary directory, so one Gpmetis may serve concurrent splits.
type Gpmetis struct {
	Binary  string // DefaultGpmetisBinary when empty
	TempDir string // os.TempDir() when empty
}

// Partition implements Backend.
func (b *Gpmetis) Partition(ctx context.Context, adj [][]int, opts Options) ([]int, error) {
	if err := ValidateInput(adj, opts.Parts); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(b.TempDir, "gpmetis-")
	if err != nil {
		return nil, fmt.Errorf("create gpmetis workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	graphPath := filepath.Join(dir, "graph.metis")
	if err := writeGraphFile(graphPath, adj); err != nil {
		return nil, err
	}

	bin := b.Binary
	if bin == "" {
		bin = DefaultGpmetisBinary
	}
	cmd := exec.CommandContext(ctx, bin, b.args(graphPath, opts)...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	if reason, ok := inputErrorLine(out.String()); ok {
		return nil, &InputError{Reason: reason}
	}
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("gpmetis: %w: %s", runErr, lastLine(out.String()))
	}

	return readPartFile(fmt.Sprintf("%s.part.%d", graphPath, opts.Parts), len(adj))
}

func (b *Gpmetis) args(graphPath string, opts Options) []string {
	ptype := "-ptype=kway"
	if opts.Recursive {
		ptype = "-ptype=rb"
	}
	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	args := []string{ptype, "-niter=" + strconv.Itoa(iterations)}
	if opts.Seed != nil {
		args = append(args, "-seed="+strconv.Itoa(*opts.Seed))
	}
	return append(args, graphPath, strconv.Itoa(opts.Parts))
}

func writeGraphFile(path string, adj [][]int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metis graph: %w", err)
	}
	if err := topology.WriteAdjacencyMETIS(f, adj); err != nil {
		f.Close()
		return fmt.Errorf("write metis graph: %w", err)
	}
	return f.Close()
}

func readPartFile(path string, rows int) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gpmetis result: %w", err)
	}
	defer f.Close()

	parts := make([]int, 0, rows)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		p, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("gpmetis result line %d: %w", len(parts)+1, err)
		}
		parts = append(parts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read gpmetis result: %w", err)
	}
	if len(parts) != rows {
		return nil, fmt.Errorf("gpmetis result has %d lines for %d nodes", len(parts), rows)
	}
	return parts, nil
}

// inputErrorLine finds METIS' "Input Error" diagnostic.
func inputErrorLine(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Input Error") {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
