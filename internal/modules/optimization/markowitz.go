package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MarkowitzOptions extends the shared options with the frontier grid shape
type MarkowitzOptions struct {
	Options
	// Points is the number of target returns on the frontier grid
	Points int
	// MinRet and MaxRet clip the grid to [max(min(mu), MinRet),
	// min(max(mu), MaxRet)]
	MinRet float64
	MaxRet float64
	// RetGrid, when non-nil, overrides the computed grid entirely
	RetGrid []float64
}

// DefaultMarkowitzOptions returns the standard frontier configuration
func DefaultMarkowitzOptions() MarkowitzOptions {
	return MarkowitzOptions{
		Options: DefaultOptions(),
		Points:  defaultFrontierSize,
		MinRet:  0,
		MaxRet:  1,
	}
}

// Markowitz traces the efficient frontier: for each target return on a grid
// it minimizes variance subject to the budget constraints and an equality
// pinning the portfolio return to the grid point. Grid points where no
// restart converges are dropped from the output.
type Markowitz struct {
	*BaseOptimizer
	points  int
	minRet  float64
	maxRet  float64
	retGrid []float64
}

// NewMarkowitz creates an efficient-frontier optimizer
func NewMarkowitz(labels []string, mu []float64, sigma *mat.SymDense, opts MarkowitzOptions) (*Markowitz, error) {
	base, err := newBaseOptimizer(StrategyMarkowitz, labels, mu, sigma, opts.Options)
	if err != nil {
		return nil, err
	}

	s := &Markowitz{
		BaseOptimizer: base,
		points:        opts.Points,
		minRet:        opts.MinRet,
		maxRet:        opts.MaxRet,
		retGrid:       opts.RetGrid,
	}
	if s.points <= 0 {
		s.points = defaultFrontierSize
	}
	base.solve = s.optimize
	return s, nil
}

func (s *Markowitz) optimize() *Result {
	grid := s.retGrid
	if grid == nil {
		grid = returnGrid(
			math.Max(s.muMin(), s.minRet),
			math.Min(s.muMax(), s.maxRet),
			s.points,
		)
	}

	r := failedResult(s.name, s.labels)
	for _, target := range grid {
		w, _, ok := s.minimize(func(x []float64) float64 {
			d := s.portfolioReturn(x) - target
			return s.objective(x) + s.budgetPenalty(x) + penaltyWeight*d*d
		})
		if !ok {
			continue
		}
		w = s.rescaleToBudget(w)

		ret := s.portfolioReturn(w)
		variance := s.variance(w)
		r.addPoint(w, ret, variance, sharpe(ret, variance))
	}

	r.Success = len(r.Weights) > 0
	return r
}

// returnGrid spans [lo, hi] with n evenly spaced points
func returnGrid(lo, hi float64, n int) []float64 {
	if n == 1 || hi <= lo {
		return []float64{lo}
	}
	grid := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid
}
