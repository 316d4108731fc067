package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewChecker(t *testing.T) {
	c := NewChecker()

	if c == nil {
		t.Fatal("NewChecker returned nil")
	}
	if c.checks == nil {
		t.Error("checks map not initialized")
	}
}

func TestRegister(t *testing.T) {
	c := NewChecker()

	called := false
	c.Register("test", func(ctx context.Context) Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	report := c.Run(context.Background())
	if !called {
		t.Error("registered check was not called")
	}
	check, exists := report.Checks["test"]
	if !exists {
		t.Fatal("check result not in report")
	}
	if check.Name != "test" {
		t.Errorf("Name = %q, want the registered name", check.Name)
	}
	if check.LastChecked.IsZero() {
		t.Error("LastChecked not set")
	}
}

func TestNames(t *testing.T) {
	c := NewChecker()
	for _, name := range []string{"tbs", "gpmetis", "output"} {
		c.Register(name, func(ctx context.Context) Check { return Check{Status: StatusHealthy} })
	}

	got := c.Names()
	want := []string{"gpmetis", "output", "tbs"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRunStatusAggregation(t *testing.T) {
	tests := []struct {
		name           string
		checkStatuses  []Status
		expectedStatus Status
	}{
		{
			name:           "all healthy",
			checkStatuses:  []Status{StatusHealthy, StatusHealthy, StatusHealthy},
			expectedStatus: StatusHealthy,
		},
		{
			name:           "one degraded",
			checkStatuses:  []Status{StatusHealthy, StatusDegraded, StatusHealthy},
			expectedStatus: StatusDegraded,
		},
		{
			name:           "one unhealthy",
			checkStatuses:  []Status{StatusHealthy, StatusUnhealthy, StatusHealthy},
			expectedStatus: StatusUnhealthy,
		},
		{
			name:           "degraded and unhealthy",
			checkStatuses:  []Status{StatusDegraded, StatusUnhealthy, StatusHealthy},
			expectedStatus: StatusUnhealthy,
		},
		{
			name:           "no checks",
			checkStatuses:  []Status{},
			expectedStatus: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for i, status := range tt.checkStatuses {
				s := status
				c.Register(fmt.Sprintf("check-%d", i), func(ctx context.Context) Check {
					return Check{Status: s}
				})
			}

			report := c.Run(context.Background())
			if report.Status != tt.expectedStatus {
				t.Errorf("Status = %s, want %s", report.Status, tt.expectedStatus)
			}
			if report.Healthy() != (tt.expectedStatus != StatusUnhealthy) {
				t.Errorf("Healthy() = %v for %s", report.Healthy(), report.Status)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	c := NewChecker()
	called := false
	c.Register("slow", func(ctx context.Context) Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := c.Run(ctx)
	if called {
		t.Error("check ran on a cancelled context")
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Status = %s, want unhealthy", report.Status)
	}
}

func TestBinaryCheck(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit check")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "gpmetis")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		bin  string
		want Status
	}{
		{"executable path", exe, StatusHealthy},
		{"not executable", plain, StatusUnhealthy},
		{"missing path", filepath.Join(dir, "missing"), StatusUnhealthy},
		{"not in PATH", "mvsplan-no-such-binary", StatusUnhealthy},
		{"empty", "", StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := BinaryCheck("gpmetis", tt.bin)(context.Background())
			if check.Status != tt.want {
				t.Errorf("Status = %s (%s), want %s", check.Status, check.Message, tt.want)
			}
			if check.Name != "gpmetis" {
				t.Errorf("Name = %q", check.Name)
			}
		})
	}
}

func TestWritableDirCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")

	check := WritableDirCheck("output", dir)(context.Background())
	if check.Status != StatusHealthy {
		t.Fatalf("Status = %s (%s), want healthy", check.Status, check.Message)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
}

func TestWritableDirCheckFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	check := WritableDirCheck("output", file)(context.Background())
	if check.Status != StatusUnhealthy {
		t.Errorf("Status = %s, want unhealthy for a regular file", check.Status)
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		name     string
		machines []MachineMemory
		memReq   float64
		oversub  float64
		want     Status
	}{
		{"all fit", []MachineMemory{{1, 64}, {2, 32}}, 24, 1, StatusHealthy},
		{"one short", []MachineMemory{{1, 64}, {2, 16}}, 24, 1, StatusDegraded},
		{"none fit", []MachineMemory{{1, 16}, {2, 16}}, 24, 1, StatusUnhealthy},
		{"over-subscription rescues", []MachineMemory{{1, 16}}, 24, 2, StatusHealthy},
		{"zero ratio means one", []MachineMemory{{1, 16}}, 24, 0, StatusUnhealthy},
		{"no machines", nil, 24, 1, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := MemoryCheck(tt.machines, tt.memReq, tt.oversub)(context.Background())
			if check.Status != tt.want {
				t.Errorf("Status = %s (%s), want %s", check.Status, check.Message, tt.want)
			}
		})
	}
}
