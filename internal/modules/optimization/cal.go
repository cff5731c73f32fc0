package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CALOptions extends the shared options with the capital allocation line
// inputs.
type CALOptions struct {
	Options
	// Points is the total number of points across lending line and frontier
	Points int
	// RiskFree is the annualized risk-free return anchoring the lending line
	RiskFree float64
}

// DefaultCALOptions returns the standard CAL configuration
func DefaultCALOptions() CALOptions {
	return CALOptions{
		Options: DefaultOptions(),
		Points:  defaultFrontierSize,
	}
}

// CAL traces the capital allocation line: a straight lending segment from
// the risk-free point to the tangency (max-Sharpe) portfolio, then the
// efficient frontier above it. The lending segment is purely geometric
// blending of the tangency weights, not a re-optimization.
type CAL struct {
	*BaseOptimizer
	points   int
	riskFree float64
	opts     Options
}

// NewCAL creates a capital-allocation-line optimizer
func NewCAL(labels []string, mu []float64, sigma *mat.SymDense, opts CALOptions) (*CAL, error) {
	base, err := newBaseOptimizer(StrategyCAL, labels, mu, sigma, opts.Options)
	if err != nil {
		return nil, err
	}

	s := &CAL{
		BaseOptimizer: base,
		points:        opts.Points,
		riskFree:      opts.RiskFree,
		opts:          opts.Options,
	}
	if s.points <= 0 {
		s.points = defaultFrontierSize
	}
	base.solve = s.optimize
	return s, nil
}

func (s *CAL) optimize() *Result {
	tangency, err := NewMaxSharpe(s.labels, s.mu, s.sigma, s.opts)
	if err != nil {
		return failedResult(s.name, s.labels)
	}
	ms := tangency.Result()
	if !ms.Success {
		return failedResult(s.name, s.labels)
	}

	msWeights := ms.Weights[0]
	msRet := ms.Returns[0]
	msVar := ms.Variances[0]

	below := s.pointsBelow(msRet)

	r := failedResult(s.name, s.labels)

	// Lending line: linear interpolation from the risk-free point to the
	// tangency portfolio, scaling the tangency weights down toward zero
	if below > 0 && msRet > s.riskFree {
		grid := returnGrid(s.riskFree, msRet, below+1)
		for _, ret := range grid[:below] {
			scale := (ret - s.riskFree) / (msRet - s.riskFree)
			w := make([]float64, len(msWeights))
			for i, v := range msWeights {
				w[i] = v * scale
			}
			variance := (ret - s.riskFree) * msVar / (msRet - s.riskFree)
			r.addPoint(w, ret, variance, sharpe(ret, variance))
		}
	}

	r.addPoint(msWeights, msRet, msVar, ms.Sharpes[0])

	// Efficient frontier above the tangency point
	if above := s.points - below; above > 0 {
		frontier, err := NewMarkowitz(s.labels, s.mu, s.sigma, MarkowitzOptions{
			Options: s.opts,
			Points:  above,
			MinRet:  msRet,
			MaxRet:  1,
		})
		if err == nil {
			if fr := frontier.Result(); fr.Success {
				for i := range fr.Weights {
					r.addPoint(fr.Weights[i], fr.Returns[i], fr.Variances[i], fr.Sharpes[i])
				}
			}
		}
	}

	r.Success = true
	return r
}

// pointsBelow splits the grid at the tangency return by linear interpolation
// of the constituents' return range.
func (s *CAL) pointsBelow(msRet float64) int {
	lo, hi := s.muMin(), s.muMax()
	if hi <= lo {
		return 0
	}
	frac := (msRet - lo) / (hi - lo)
	below := int(math.Round(frac * float64(s.points)))
	if below < 0 {
		below = 0
	}
	if below > s.points {
		below = s.points
	}
	return below
}
