// Package costmodel holds the analytic emulation time and memory model
// used to rank VM allocations.
package costmodel

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

var (
	// ErrUnknownMemConfig is returned for a memory configuration missing
	// from the theta table.
	ErrUnknownMemConfig = errors.New("unknown memory configuration")

	// ErrInvalidParams is returned by Validate.
	ErrInvalidParams = errors.New("invalid cost model parameters")
)

// ThetaEntry is the measured per-VM memory overhead of one memory
// configuration.
type ThetaEntry struct {
	MemConfGB  int     `json:"mem_conf_gb" yaml:"mem_conf_gb"`
	OverheadGB float64 `json:"overhead_gb" yaml:"overhead_gb"`
}

// Theta is a theta table sorted by MemConfGB with unique keys.
type Theta []ThetaEntry

// NewTheta builds a sorted table from a key -> overhead map.
func NewTheta(table map[int]float64) (Theta, error) {
	t := make(Theta, 0, len(table))
	for k, v := range table {
		t = append(t, ThetaEntry{MemConfGB: k, OverheadGB: v})
	}
	slices.SortFunc(t, func(a, b ThetaEntry) int { return a.MemConfGB - b.MemConfGB })
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that keys are positive and strictly increasing and that
// overheads are positive and finite.
func (t Theta) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty theta table", ErrInvalidParams)
	}
	for i, e := range t {
		if e.MemConfGB <= 0 {
			return fmt.Errorf("%w: memory configuration %d", ErrInvalidParams, e.MemConfGB)
		}
		if e.OverheadGB <= 0 || math.IsNaN(e.OverheadGB) || math.IsInf(e.OverheadGB, 0) {
			return fmt.Errorf("%w: overhead %v for %d GB", ErrInvalidParams, e.OverheadGB, e.MemConfGB)
		}
		if i > 0 && t[i-1].MemConfGB >= e.MemConfGB {
			return fmt.Errorf("%w: theta keys not strictly increasing at %d GB", ErrInvalidParams, e.MemConfGB)
		}
	}
	return nil
}

// Lookup returns the overhead of memConf.
func (t Theta) Lookup(memConf int) (float64, bool) {
	i, ok := slices.BinarySearchFunc(t, memConf, func(e ThetaEntry, k int) int { return e.MemConfGB - k })
	if !ok {
		return 0, false
	}
	return t[i].OverheadGB, true
}

// Keys returns the memory configurations in ascending order.
func (t Theta) Keys() []int {
	keys := make([]int, len(t))
	for i, e := range t {
		keys[i] = e.MemConfGB
	}
	return keys
}

// Params are the platform constants of the model.
type Params struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	Theta Theta   `json:"theta" yaml:"theta"`
}

// Validate checks the constants and the theta table.
func (p Params) Validate() error {
	for name, v := range map[string]float64{"X": p.X, "Y": p.Y, "Z": p.Z} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidParams, name, v)
		}
	}
	return p.Theta.Validate()
}

// Builtin platform tables, measured on the reference testbed.
var (
	AMD64 = Params{
		X: 0.00329, Y: 0.03918, Z: 0.0127,
		Theta: Theta{
			{8, 2.814}, {25, 3.190}, {50, 3.746}, {100, 4.820},
			{200, 7.009}, {300, 8.857}, {400, 10.590}, {500, 10.942},
		},
	}
	ARM64 = Params{
		X: 0.00931, Y: 0.02624, Z: 0.0037,
		Theta: Theta{
			{8, 1.642}, {25, 1.934}, {50, 2.360}, {100, 3.251},
			{200, 5.118}, {300, 6.890}, {400, 8.722}, {500, 10.535},
		},
	}
)

// Builtin returns a copy of a builtin platform table by name.
func Builtin(platform string) (Params, bool) {
	var p Params
	switch platform {
	case "amd64":
		p = AMD64
	case "arm64":
		p = ARM64
	default:
		return Params{}, false
	}
	p.Theta = slices.Clone(p.Theta)
	return p, true
}
