package allocation

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/dd0wney/cluso-mvsplan/pkg/costmodel"
	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
	"github.com/dd0wney/cluso-mvsplan/pkg/parallel"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
)

// DefaultNMaxLimit is the largest VM count MaxVMCount considers by default.
const DefaultNMaxLimit = 24

// CurveSample is E_max(n) measured over repeated randomized splits.
type CurveSample struct {
	// Runs[r][n-1] is E_max(n) of run r.
	Runs   [][]int
	Mean   []float64
	StdDev []float64
}

// Curve rounds the mean to a curve usable by the cost model.
func (s *CurveSample) Curve() costmodel.Curve {
	c := make(costmodel.Curve, len(s.Mean))
	for i, m := range s.Mean {
		c[i] = int(math.Round(m))
	}
	return c
}

// SampleCurve measures E_max(n) for n = 1..maxN, runs times each, with
// random seeds. Splits run on a pool of workers goroutines.
func SampleCurve(ctx context.Context, s Splitter, g *topology.Graph, maxN, runs, workers int, logger logging.Logger) (*CurveSample, error) {
	if maxN < 1 || runs < 1 {
		return nil, fmt.Errorf("sample %d runs up to n=%d: both must be positive", runs, maxN)
	}
	logger = logging.OrNop(logger).With(logging.Component("allocation"))
	timer := logging.StartTimer(logger, "sampling E_max curve",
		logging.Int("max_n", maxN), logging.Int("runs", runs), logging.Int("workers", workers))

	values, err := parallel.Map(ctx, workers, maxN*runs, logger, func(ctx context.Context, i int) (int, error) {
		n := i%maxN + 1
		if n > g.NodeCount() && g.NodeCount() > 0 {
			n = g.NodeCount()
		}
		return maxEdgeCount(ctx, s, g, n, true)
	})
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	timer.End()

	sample := &CurveSample{
		Runs:   make([][]int, runs),
		Mean:   make([]float64, maxN),
		StdDev: make([]float64, maxN),
	}
	for r := range sample.Runs {
		sample.Runs[r] = values[r*maxN : (r+1)*maxN]
	}
	xs := make([]float64, runs)
	for n := 0; n < maxN; n++ {
		for r := 0; r < runs; r++ {
			xs[r] = float64(sample.Runs[r][n])
		}
		sample.Mean[n] = stat.Mean(xs, nil)
		if runs > 1 {
			sample.StdDev[n] = stat.StdDev(xs, nil)
		}
	}
	return sample, nil
}

// SimplifiedGain is the closed form gain bound used to size n_max:
// (2n-1) mGraph / (n^2 (n-1)^2 overhead).
func SimplifiedGain(n int, mGraph, overhead float64) float64 {
	fn := float64(n)
	return (2*fn - 1) * mGraph / (fn * fn * (fn - 1) * (fn - 1) * overhead)
}

// MaxVMCount returns the largest n in [2, limit] whose SimplifiedGain
// exceeds lowerBound, or 0 when none does.
func MaxVMCount(mGraph, overhead, lowerBound float64, limit int) int {
	nmax := 0
	for n := 2; n <= limit; n++ {
		if SimplifiedGain(n, mGraph, overhead) > lowerBound {
			nmax = n
		}
	}
	return nmax
}
