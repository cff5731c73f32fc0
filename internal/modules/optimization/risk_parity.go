package optimization

import "gonum.org/v1/gonum/mat"

// RiskParity equalizes each asset's risk contribution. Unlike the other
// strategies it is long-only: the non-negativity inequality is part of the
// formulation, not an afterthought.
type RiskParity struct {
	*BaseOptimizer
}

// NewRiskParity creates a risk-parity optimizer
func NewRiskParity(labels []string, mu []float64, sigma *mat.SymDense, opts Options) (*RiskParity, error) {
	base, err := newBaseOptimizer(StrategyRiskParity, labels, mu, sigma, opts)
	if err != nil {
		return nil, err
	}
	s := &RiskParity{BaseOptimizer: base}
	base.solve = s.optimize
	return s, nil
}

func (s *RiskParity) optimize() *Result {
	n := len(s.labels)
	target := 1.0 / float64(n)

	w, _, ok := s.minimize(func(x []float64) float64 {
		obj := s.riskDeviation(x, target) + s.budgetPenalty(x)
		for _, v := range x {
			if v < 0 {
				obj += penaltyWeight * v * v
			}
		}
		return obj
	})
	if !ok {
		return failedResult(s.name, s.labels)
	}
	w = s.rescaleToBudget(w)

	// Tiny negative residuals from the penalty formulation are noise
	for i, v := range w {
		if v < 0 && v > -convergenceTolerance {
			w[i] = 0
		}
	}

	ret := s.portfolioReturn(w)
	variance := s.variance(w)

	r := failedResult(s.name, s.labels)
	r.Success = true
	r.addPoint(w, ret, variance, sharpe(ret, variance))
	return r
}

// riskDeviation is the sum of squared gaps between each asset's risk
// contribution w_i*(Σw)_i / (w'Σw) and the equal target.
func (s *RiskParity) riskDeviation(w []float64, target float64) float64 {
	total := s.variance(w)
	if total <= 0 {
		return penaltyWeight
	}

	var obj float64
	for i := range w {
		var row float64
		for j := range w {
			row += s.sigma.At(i, j) * w[j]
		}
		d := w[i]*row/total - target
		obj += d * d
	}
	return obj
}
