package optimization

import "gonum.org/v1/gonum/mat"

// MinVariance finds the single portfolio with the lowest variance that
// satisfies the budget constraints.
type MinVariance struct {
	*BaseOptimizer
}

// NewMinVariance creates a minimal-variance optimizer
func NewMinVariance(labels []string, mu []float64, sigma *mat.SymDense, opts Options) (*MinVariance, error) {
	base, err := newBaseOptimizer(StrategyMinVariance, labels, mu, sigma, opts)
	if err != nil {
		return nil, err
	}
	s := &MinVariance{BaseOptimizer: base}
	base.solve = s.optimize
	return s, nil
}

func (s *MinVariance) optimize() *Result {
	w, _, ok := s.minimize(func(x []float64) float64 {
		return s.objective(x) + s.budgetPenalty(x)
	})
	if !ok {
		return failedResult(s.name, s.labels)
	}
	w = s.rescaleToBudget(w)

	ret := s.portfolioReturn(w)
	variance := s.variance(w)

	r := failedResult(s.name, s.labels)
	r.Success = true
	r.addPoint(w, ret, variance, sharpe(ret, variance))
	return r
}
