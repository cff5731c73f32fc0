package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxSharpe finds the portfolio maximizing return over volatility,
// implemented as minimizing the negated ratio.
type MaxSharpe struct {
	*BaseOptimizer
}

// NewMaxSharpe creates a max-Sharpe optimizer
func NewMaxSharpe(labels []string, mu []float64, sigma *mat.SymDense, opts Options) (*MaxSharpe, error) {
	base, err := newBaseOptimizer(StrategyMaxSharpe, labels, mu, sigma, opts)
	if err != nil {
		return nil, err
	}
	s := &MaxSharpe{BaseOptimizer: base}
	base.solve = s.optimize
	return s, nil
}

func (s *MaxSharpe) optimize() *Result {
	w, obj, ok := s.minimize(func(x []float64) float64 {
		ret := s.portfolioReturn(x)
		std := math.Sqrt(math.Max(s.objective(x), 1e-10))
		return -ret/std + s.budgetPenalty(x)
	})
	if !ok || obj == 0 {
		return failedResult(s.name, s.labels)
	}
	w = s.rescaleToBudget(w)

	ret := s.portfolioReturn(w)
	// The variance is back-derived from the solver's objective value
	// rather than recomputed from w'Σw. At convergence the penalty terms
	// vanish and the two agree within solver tolerance.
	variance := (ret / obj) * (ret / obj)

	r := failedResult(s.name, s.labels)
	r.Success = true
	r.addPoint(w, ret, variance, sharpe(ret, variance))
	return r
}
