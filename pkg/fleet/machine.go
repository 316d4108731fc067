// Package fleet plans VM allocations across all physical machines of a
// deployment.
package fleet

import (
	"fmt"

	"github.com/dd0wney/cluso-mvsplan/pkg/allocation"
	"github.com/dd0wney/cluso-mvsplan/pkg/costmodel"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// Machine describes one physical machine.
type Machine struct {
	ID       int
	Cores    int
	MemoryGB float64
	MaxVMs   int
	Params   costmodel.Params
}

// Workload holds the settings shared by every machine of a run.
type Workload struct {
	MemReqGB         float64
	OverSubscription float64
	Variant          costmodel.Variant
	FixedVMCount     int
	FixedMemConf     int
}

// Request builds the allocation request of m for its share g.
func (w Workload) Request(m Machine, g *topology.Graph) allocation.Request {
	return allocation.Request{
		Graph:            g,
		CoreCount:        m.Cores,
		MemoryGB:         m.MemoryGB,
		OverSubscription: w.OverSubscription,
		Params:           m.Params,
		Variant:          w.Variant,
		MemReqGB:         w.MemReqGB,
		FixedVMCount:     w.FixedVMCount,
		FixedMemConf:     w.FixedMemConf,
	}
}

// MachineError ties a failure to the physical machine it happened on.
type MachineError struct {
	Machine int
	Err     error
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("machine %d: %v", e.Machine, e.Err)
}

func (e *MachineError) Unwrap() error {
	return e.Err
}

func machineIDs(machines []Machine) ([]int, error) {
	ids := make([]int, len(machines))
	seen := make(map[int]struct{}, len(machines))
	for i, m := range machines {
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("duplicate machine id %d", m.ID)
		}
		seen[m.ID] = struct{}{}
		ids[i] = m.ID
	}
	return ids, nil
}
