package metis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeGpmetis writes a shell script standing in for gpmetis. It logs its
// arguments to argsPath and puts node i in part i % k.
func fakeGpmetis(t *testing.T, body string) (bin, argsPath string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	dir := t.TempDir()
	argsPath = filepath.Join(dir, "args.log")
	bin = filepath.Join(dir, "gpmetis")
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" > %q
for a in "$@"; do file=$k; k=$a; done
%s
n=$(head -n 1 "$file" | cut -d' ' -f1)
i=0
: > "$file.part.$k"
while [ $i -lt $n ]; do
  echo $((i %% k)) >> "$file.part.$k"
  i=$((i+1))
done
`, argsPath, body)
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, argsPath
}

func TestGpmetis_Partition(t *testing.T) {
	bin, argsPath := fakeGpmetis(t, "")
	b := &Gpmetis{Binary: bin, TempDir: t.TempDir()}

	adj := [][]int{{1, 3}, {0, 2}, {1, 3}, {2, 0}}
	seed := 42
	parts, err := b.Partition(context.Background(), adj, Options{Parts: 2, Iterations: 20, Recursive: true, Seed: &seed})
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	want := []int{0, 1, 0, 1}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("Partition() = %v, want %v", parts, want)
		}
	}

	args, err := os.ReadFile(argsPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, flag := range []string{"-ptype=rb", "-niter=20", "-seed=42"} {
		if !strings.Contains(string(args), flag) {
			t.Errorf("gpmetis args %q missing %s", args, flag)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(string(args)), " 2") {
		t.Errorf("gpmetis args %q should end with the part count", args)
	}
}

func TestGpmetis_NoSeedWhenDeterministic(t *testing.T) {
	bin, argsPath := fakeGpmetis(t, "")
	b := &Gpmetis{Binary: bin, TempDir: t.TempDir()}

	if _, err := b.Partition(context.Background(), [][]int{{1}, {0}}, Options{Parts: 2}); err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	args, _ := os.ReadFile(argsPath)
	if strings.Contains(string(args), "-seed") {
		t.Errorf("gpmetis args %q should not carry a seed", args)
	}
	if !strings.Contains(string(args), "-ptype=kway") {
		t.Errorf("gpmetis args %q should request k-way", args)
	}
}

func TestGpmetis_InputErrorDiagnostic(t *testing.T) {
	bin, _ := fakeGpmetis(t, `echo "***Input Error: Incorrect number of partitions"; exit 1`)
	b := &Gpmetis{Binary: bin, TempDir: t.TempDir()}

	_, err := b.Partition(context.Background(), [][]int{{1}, {0}}, Options{Parts: 2})
	if !IsInputError(err) {
		t.Fatalf("Partition() error = %v, want InputError", err)
	}
}

func TestGpmetis_ProcessFailure(t *testing.T) {
	bin, _ := fakeGpmetis(t, `echo "segfault" >&2; exit 3`)
	b := &Gpmetis{Binary: bin, TempDir: t.TempDir()}

	_, err := b.Partition(context.Background(), [][]int{{1}, {0}}, Options{Parts: 2})
	if err == nil || IsInputError(err) {
		t.Fatalf("Partition() error = %v, want a process error", err)
	}
	if !strings.Contains(err.Error(), "segfault") {
		t.Errorf("error %q should carry the diagnostic", err)
	}
}

func TestGpmetis_ValidatesBeforeRunning(t *testing.T) {
	bin, argsPath := fakeGpmetis(t, "")
	b := &Gpmetis{Binary: bin, TempDir: t.TempDir()}

	_, err := b.Partition(context.Background(), [][]int{{1}, {0}}, Options{Parts: 3})
	if !IsInputError(err) {
		t.Fatalf("Partition() error = %v, want InputError", err)
	}
	if _, err := os.Stat(argsPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("gpmetis should not run on invalid input")
	}
}

func TestGpmetis_WithSplitter(t *testing.T) {
	bin, _ := fakeGpmetis(t, "")
	s := NewSplitter(&Gpmetis{Binary: bin, TempDir: t.TempDir()}, nil, Config{}, nil, nil)

	a, err := s.Split(context.Background(), ringGraph(t, 9), 3, 4, true)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	counts := make(map[int]int)
	for _, p := range a {
		counts[p]++
	}
	for _, p := range []int{4, 5, 6} {
		if counts[p] != 3 {
			t.Errorf("part %d has %d nodes, want 3", p, counts[p])
		}
	}
}
