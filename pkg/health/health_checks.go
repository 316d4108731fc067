package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// BinaryCheck verifies that an external program resolves in PATH or,
// for paths with a separator, that the file is executable.
func BinaryCheck(name, bin string) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    name,
			Details: map[string]any{"binary": bin},
		}

		if bin == "" {
			check.Status = StatusUnhealthy
			check.Message = "No binary configured"
			return check
		}

		resolved, err := exec.LookPath(bin)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		check.Details["resolved"] = resolved
		check.Status = StatusHealthy
		check.Message = "Found"
		return check
	}
}

// WritableDirCheck verifies that dir exists, or can be created, and
// accepts new files.
func WritableDirCheck(name, dir string) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    name,
			Details: map[string]any{"dir": dir},
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		f, err := os.CreateTemp(dir, ".mvsplan-preflight-*")
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		f.Close()
		os.Remove(f.Name())

		check.Status = StatusHealthy
		check.Message = "Writable"
		return check
	}
}

// MachineMemory is the memory view of one physical machine.
type MachineMemory struct {
	ID       int
	MemoryGB int
}

// MemoryCheck compares the memory of every machine, scaled by the
// over-subscription ratio, with the memory one emulation needs.
// Machines that cannot host it make the fleet degraded, a fleet where
// none can is unhealthy.
func MemoryCheck(machines []MachineMemory, memReqGB, overSubscription float64) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}
		if overSubscription <= 0 {
			overSubscription = 1
		}

		var short []int
		for _, m := range machines {
			if float64(m.MemoryGB)*overSubscription < memReqGB {
				short = append(short, m.ID)
			}
		}

		check.Details["machines"] = len(machines)
		check.Details["mem_req_gb"] = memReqGB
		check.Details["short_machines"] = short

		switch {
		case len(machines) == 0:
			check.Status = StatusUnhealthy
			check.Message = "No machines configured"
		case len(short) == len(machines):
			check.Status = StatusUnhealthy
			check.Message = "No machine has enough memory"
		case len(short) > 0:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d of %d machines lack memory", len(short), len(machines))
		default:
			check.Status = StatusHealthy
			check.Message = "Sufficient memory"
		}

		return check
	}
}
