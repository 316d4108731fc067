package costmodel

import (
	"fmt"
	"math"
	"strings"
)

// Variant selects the time formula.
type Variant int

const (
	// VariantSN models a single-network emulation:
	// T = E (V/n X + Z) + E sqrt(2 E X Y). It is the default.
	VariantSN Variant = iota
	// VariantMVS models multi-VM splitting:
	// T = E (V/n X + Z) + E^2 Y / 2.
	VariantMVS
)

func (v Variant) String() string {
	switch v {
	case VariantSN:
		return "sn"
	case VariantMVS:
		return "mvs"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant accepts "sn"/"variant2" and "mvs"/"variant1". The empty
// string selects VariantSN.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sn", "variant2":
		return VariantSN, nil
	case "mvs", "variant1":
		return VariantMVS, nil
	}
	return 0, fmt.Errorf("unknown cost variant %q", s)
}

// Curve holds E_max(n) for n = 1..len(c): the largest per-partition edge
// count when the graph is split n ways.
type Curve []int

// At returns E_max(n).
func (c Curve) At(n int) (int, bool) {
	if n < 1 || n > len(c) {
		return 0, false
	}
	return c[n-1], true
}

// Model evaluates one physical machine's share of the topology. It is a
// value type with no hidden state: identical inputs give identical output.
type Model struct {
	Params  Params
	Variant Variant
	Volume  float64 // V, node count of the share
	Curve   Curve
	MemReq  float64 // m_req, memory of the unsplit emulation in GB
}

// Time returns T(n).
func (m Model) Time(n int) (float64, error) {
	e, ok := m.Curve.At(n)
	if !ok {
		return 0, fmt.Errorf("E_max(%d) outside curve of length %d", n, len(m.Curve))
	}
	E := float64(e)
	p := m.Params
	base := E * (m.Volume/float64(n)*p.X + p.Z)
	if m.Variant == VariantMVS {
		return base + E*E*p.Y/2, nil
	}
	return base + E*math.Sqrt(2*E*p.X*p.Y), nil
}

// Memory returns M(n, memConf) = n * theta[memConf].
func (m Model) Memory(n, memConf int) (float64, error) {
	theta, ok := m.Params.Theta.Lookup(memConf)
	if !ok {
		return 0, fmt.Errorf("%w: %d GB", ErrUnknownMemConfig, memConf)
	}
	return float64(n) * theta, nil
}

// Gain returns [(T(1) - T(n)) / T(1)] / [M(n, memConf) / m_req], the
// fractional time saved per fractional memory spent. A zero T(1) yields 0.
func (m Model) Gain(n, memConf int) (float64, error) {
	t1, err := m.Time(1)
	if err != nil {
		return 0, err
	}
	tn, err := m.Time(n)
	if err != nil {
		return 0, err
	}
	mem, err := m.Memory(n, memConf)
	if err != nil {
		return 0, err
	}
	if t1 == 0 || mem == 0 {
		return 0, nil
	}
	return ((t1 - tn) / t1) / (mem / m.MemReq), nil
}
