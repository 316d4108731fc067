package tbs

import "math"

// CapacitySchedule yields the capacity factors tried in order: a few tight
// factors just above 1, then coarse steps of 0.05 from 1.10.
type CapacitySchedule struct {
	i int
}

var tightFactors = []float64{1.05, 1.04, 1.03, 1.02, 1.01}

// Next returns the next factor.
func (s *CapacitySchedule) Next() float64 {
	i := s.i
	s.i++
	if i < len(tightFactors) {
		return tightFactors[i]
	}
	// computed from the step index so repeated addition does not drift
	k := i - len(tightFactors)
	return float64(110+5*k) / 100
}

// Capacity returns floor(factor * nodes / machines). The factor is taken
// in whole hundredths so the floor runs on exact integers.
func Capacity(factor float64, nodes, machines int) int {
	hundredths := int(math.Round(factor * 100))
	return hundredths * nodes / (100 * machines)
}
