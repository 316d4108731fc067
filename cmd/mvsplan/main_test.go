package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGpmetis writes a shell script that puts node i in part i % k.
func fakeGpmetis(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "gpmetis")
	script := `#!/bin/sh
for a in "$@"; do file=$k; k=$a; done
n=$(head -n 1 "$file" | cut -d' ' -f1)
i=0
: > "$file.part.$k"
while [ $i -lt $n ]; do
  echo $((i % k)) >> "$file.part.$k"
  i=$((i+1))
done
`
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin
}

func writeRing(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", i)
	}
	b.WriteByte('\n')
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d %d\n", i, i%n+1)
	}
	path := filepath.Join(dir, "ring.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunPlan_SingleMachine(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	topo := writeRing(t, dir, 12)
	cfgPath := filepath.Join(dir, "plan.yaml")
	cfg := fmt.Sprintf(`machines:
  - {id: 0, platform: amd64, cores: 6, memory_gb: 64, max_vms: 8}
experiment:
  mem_req_gb: 16
partitioner:
  metis:
    binary: %s
    temp_dir: %s
`, fakeGpmetis(t), t.TempDir())
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	metricsPath := filepath.Join(dir, "metrics.prom")

	var stdout bytes.Buffer
	err := runPlan(context.Background(),
		[]string{"-config", cfgPath, "-topo", topo, "-out", out, "-metrics-out", metricsPath},
		&stdout, false)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "All allocations are legal")
	assert.Contains(t, stdout.String(), "sub-topologies")
	assert.Contains(t, stdout.String(), "PM split: 1 parts, sizes [12], load balance 1.00")
	assert.Contains(t, stdout.String(), "VM split: ")

	subs, err := filepath.Glob(filepath.Join(out, "ring.sub*.txt"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(subs), 2)

	_, err = os.Stat(filepath.Join(out, "vm_alloc_result", "pm_0.csv"))
	assert.NoError(t, err)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "mvs_optimizer_runs_total")
}

func TestRunPlan_OptimizeOnlyWritesNoSubgraphs(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	topo := writeRing(t, dir, 8)
	cfgPath := filepath.Join(dir, "plan.json")
	cfg := fmt.Sprintf(`{
  "machines": [{"id": 3, "platform": "arm64", "cores": 4, "memory_gb": 64, "max_vms": 4}],
  "experiment": {"mem_req_gb": 16},
  "partitioner": {"metis": {"binary": %q}}
}`, fakeGpmetis(t))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	var stdout bytes.Buffer
	require.NoError(t, runPlan(context.Background(), []string{"-config", cfgPath, "-topo", topo, "-out", out}, &stdout, true))

	subs, _ := filepath.Glob(filepath.Join(out, "ring.sub*.txt"))
	assert.Empty(t, subs)
	_, err := os.Stat(filepath.Join(out, "vm_alloc_result", "pm_3.csv"))
	assert.NoError(t, err)
}

func TestRunPlan_FlagErrors(t *testing.T) {
	var stdout bytes.Buffer
	assert.Error(t, runPlan(context.Background(), []string{"-config", "x.yaml"}, &stdout, false), "missing -topo")
	assert.Error(t, runPlan(context.Background(), []string{"-topo", "t.txt", "-config", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, false))
}

func writeChain(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", i)
	}
	b.WriteByte('\n')
	for i := 1; i < n; i++ {
		fmt.Fprintf(&b, "%d %d\n", i, i+1)
	}
	path := filepath.Join(dir, "chain_8.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunEmax(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	topo := writeChain(t, t.TempDir(), 8)
	bin := fakeGpmetis(t)

	var stdout bytes.Buffer
	err := runEmax(context.Background(),
		[]string{"-topo", topo, "-max-n", "4", "-runs", "2", "-workers", "2", "-gpmetis", bin, "-family", "chain_8"},
		&stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "E_max over 2 runs")
	assert.Contains(t, stdout.String(), "curve: [7 ")

	err = runEmax(context.Background(), []string{"-topo", topo, "-gpmetis", bin, "-family", "chain_9"}, &stdout)
	assert.ErrorContains(t, err, "chain_9")
}

func TestRunNmax(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, runNmax([]string{"-platform", "amd64", "-m-graph", "64", "-m-conf", "8", "-s", "1"}, &stdout))
	assert.Contains(t, stdout.String(), "n_max: 4")

	assert.Error(t, runNmax([]string{"-m-graph", "64", "-m-conf", "12"}, &stdout), "unknown tier")
	assert.Error(t, runNmax([]string{"-platform", "sparc", "-m-graph", "64"}, &stdout))
	assert.Error(t, runNmax([]string{}, &stdout), "m-graph required")
}

func TestRunCheck(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	writeConfig := func(bin string, memory int) string {
		path := filepath.Join(dir, fmt.Sprintf("check_%d.yaml", memory))
		cfg := fmt.Sprintf(`machines:
  - {id: 0, platform: amd64, cores: 6, memory_gb: %d, max_vms: 8}
experiment:
  mem_req_gb: 16
partitioner:
  metis:
    binary: %s
`, memory, bin)
		require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
		return path
	}

	var stdout bytes.Buffer
	ok := writeConfig(fakeGpmetis(t), 64)
	require.NoError(t, runCheck(context.Background(), []string{"-config", ok, "-out", filepath.Join(dir, "out")}, &stdout))
	assert.Contains(t, stdout.String(), "preflight: healthy")
	assert.Contains(t, stdout.String(), "output_dir")

	stdout.Reset()
	missing := writeConfig(filepath.Join(dir, "no-gpmetis"), 32)
	err := runCheck(context.Background(), []string{"-config", missing}, &stdout)
	assert.ErrorIs(t, err, errPreflightFailed)
	assert.Contains(t, stdout.String(), "preflight: unhealthy")
}
