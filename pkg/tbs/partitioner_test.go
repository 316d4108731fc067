package tbs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

func gridGraph(t testing.TB, n int) *topology.Graph {
	t.Helper()
	nodes := make([]topology.NodeID, n)
	var edges []topology.Edge
	for i := 0; i < n; i++ {
		nodes[i] = topology.NodeID(i + 1)
		if i > 0 {
			edges = append(edges, topology.NewEdge(topology.NodeID(i), topology.NodeID(i+1)))
		}
	}
	g, err := topology.NewGraph(nodes, edges)
	require.NoError(t, err)
	return g
}

// fakeTBS writes a shell script standing in for the TBS binary. The first
// `fails` runs execute failBody; later runs write node i to block
// (i % k) + shift.
func fakeTBS(t *testing.T, fails int, failBody string, shift int) (bin, workDir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	workDir = t.TempDir()
	bin = filepath.Join(t.TempDir(), "tbs")
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >> args.log
graph=$1
k=${2#--k=}
count=$(cat runs 2>/dev/null || echo 0)
count=$((count+1))
echo $count > runs
if [ $count -le %d ]; then
  %s
fi
n=$(head -n 1 "$graph" | cut -d' ' -f1)
i=0
: > tmppartition$k
while [ $i -lt $n ]; do
  echo $((i %% k + %d)) >> tmppartition$k
  i=$((i+1))
done
`, fails, failBody, shift)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, workDir
}

func readArgs(t *testing.T, workDir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(workDir, "args.log"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestPartition_SingleMachine(t *testing.T) {
	workDir := t.TempDir()
	exchange := filepath.Join(workDir, "never.graph")
	p := NewPartitioner(Config{Binary: "/nonexistent/tbs", WorkDir: workDir, ExchangePath: exchange}, nil, nil)
	g := gridGraph(t, 5)

	res, err := p.Partition(context.Background(), g, []int{7, 7})
	require.NoError(t, err)

	for _, n := range g.Nodes() {
		assert.Equal(t, 7, res.Assignment[n])
	}
	assert.Len(t, res.Nodes[7], 5)
	assert.Equal(t, 4, res.Subgraphs[7].EdgeCount())
	assert.Zero(t, res.Factor)

	_, err = os.Stat(exchange)
	assert.True(t, errors.Is(err, os.ErrNotExist), "exchange file must not be written")
}

func TestPartition_NoMachines(t *testing.T) {
	p := NewPartitioner(Config{WorkDir: t.TempDir()}, nil, nil)
	_, err := p.Partition(context.Background(), gridGraph(t, 3), nil)
	assert.Error(t, err)
}

func TestPartition_TwoMachines(t *testing.T) {
	bin, workDir := fakeTBS(t, 0, "", 0)
	p := NewPartitioner(Config{Binary: bin, WorkDir: workDir}, nil, nil)
	g := gridGraph(t, 10)

	res, err := p.Partition(context.Background(), g, []int{3, 9})
	require.NoError(t, err)

	// block 0 -> machine 3, block 1 -> machine 9
	assert.Equal(t, 3, res.Assignment[1])
	assert.Equal(t, 9, res.Assignment[2])
	assert.Len(t, res.Nodes[3], 5)
	assert.Len(t, res.Nodes[9], 5)
	assert.Equal(t, 0, res.Subgraphs[3].EdgeCount(), "alternating split keeps no internal edge")
	assert.Equal(t, 1.05, res.Factor)

	args := readArgs(t, workDir)
	require.Len(t, args, 1)
	assert.Contains(t, args[0], "--k=2")
	assert.Contains(t, args[0], "--cpu_capacity=5")
	assert.Contains(t, args[0], "--preconfiguration=esocial")
	assert.Contains(t, args[0], filepath.Join(workDir, DefaultExchangeName))

	exchange, err := os.ReadFile(filepath.Join(workDir, DefaultExchangeName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(exchange), "10 9\n"))
}

func TestPartition_RetriesOnFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-zero exit", `echo "no feasible partition" >&2; exit 1`},
		{"traceback on success exit", `echo "Traceback (most recent call last):" >&2; exit 0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, workDir := fakeTBS(t, 2, tt.body, 0)
			p := NewPartitioner(Config{Binary: bin, WorkDir: workDir}, nil, nil)

			res, err := p.Partition(context.Background(), gridGraph(t, 100), []int{0, 1})
			require.NoError(t, err)
			assert.Equal(t, 1.03, res.Factor)

			args := readArgs(t, workDir)
			require.Len(t, args, 3)
			assert.Contains(t, args[0], "--cpu_capacity=52")
			assert.Contains(t, args[1], "--cpu_capacity=52")
			assert.Contains(t, args[2], "--cpu_capacity=51")
		})
	}
}

func TestPartition_CapacityExhausted(t *testing.T) {
	bin, workDir := fakeTBS(t, 1000, `exit 2`, 0)
	p := NewPartitioner(Config{Binary: bin, WorkDir: workDir, MaxAttempts: 7}, nil, nil)

	_, err := p.Partition(context.Background(), gridGraph(t, 20), []int{0, 1})
	require.ErrorIs(t, err, ErrCapacityExhausted)

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.ExitCode)
	assert.Equal(t, 1.15, pe.Factor)
	assert.Len(t, readArgs(t, workDir), 7)
}

func TestPartition_UnknownBlockIsFatal(t *testing.T) {
	bin, workDir := fakeTBS(t, 0, "", 1)
	p := NewPartitioner(Config{Binary: bin, WorkDir: workDir}, nil, nil)

	_, err := p.Partition(context.Background(), gridGraph(t, 6), []int{0, 1})
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2, ie.Block)
	assert.Len(t, readArgs(t, workDir), 1, "integrity errors are not retried")
}

func TestPartition_MissingBinaryIsFatal(t *testing.T) {
	p := NewPartitioner(Config{Binary: filepath.Join(t.TempDir(), "missing"), WorkDir: t.TempDir()}, nil, nil)

	_, err := p.Partition(context.Background(), gridGraph(t, 6), []int{0, 1})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCapacityExhausted))
}

func TestMapBlocks_WrongLength(t *testing.T) {
	_, err := mapBlocks(gridGraph(t, 3), []int{0, 1}, []int{0, 1})
	assert.True(t, topology.IsFormatError(err))
}

func TestReadBlocks_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmppartition2")
	require.NoError(t, os.WriteFile(path, []byte("0\n1\nx\n"), 0o644))

	_, err := readBlocks(path)
	var fe *topology.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Line)
}
