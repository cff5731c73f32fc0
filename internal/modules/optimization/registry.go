package optimization

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Strategy names accepted by the registry
const (
	StrategyMinVariance = "min_variance"
	StrategyMaxSharpe   = "max_sharpe"
	StrategyMarkowitz   = "markowitz"
	StrategyRiskParity  = "risk_parity"
	StrategyCAL         = "cal"
)

// Strategy is the common surface of every optimizer
type Strategy interface {
	Name() string
	Labels() []string
	Result() *Result
}

// StrategyParams carries per-request overrides. Nil pointer fields keep the
// engine defaults.
type StrategyParams struct {
	Budget  *float64  `json:"budget,omitempty"`
	Gamma   *float64  `json:"gamma,omitempty"`
	Points  int       `json:"points,omitempty"`
	MinRet  *float64  `json:"min_ret,omitempty"`
	MaxRet  *float64  `json:"max_ret,omitempty"`
	RetGrid []float64 `json:"ret_grid,omitempty"`
}

// strategyInputs is the shared data every factory builds from
type strategyInputs struct {
	labels   []string
	mu       []float64
	sigma    *mat.SymDense
	opts     Options
	points   int
	riskFree float64
}

type strategyFactory func(in strategyInputs, p StrategyParams) (Strategy, error)

// registry is the closed set of available strategies. Dispatch is a static
// lookup, there is no reflection.
var registry = map[string]strategyFactory{
	StrategyMinVariance: func(in strategyInputs, p StrategyParams) (Strategy, error) {
		return NewMinVariance(in.labels, in.mu, in.sigma, applyOptions(in.opts, p))
	},
	StrategyMaxSharpe: func(in strategyInputs, p StrategyParams) (Strategy, error) {
		return NewMaxSharpe(in.labels, in.mu, in.sigma, applyOptions(in.opts, p))
	},
	StrategyRiskParity: func(in strategyInputs, p StrategyParams) (Strategy, error) {
		return NewRiskParity(in.labels, in.mu, in.sigma, applyOptions(in.opts, p))
	},
	StrategyMarkowitz: func(in strategyInputs, p StrategyParams) (Strategy, error) {
		opts := MarkowitzOptions{
			Options: applyOptions(in.opts, p),
			Points:  in.points,
			MinRet:  0,
			MaxRet:  1,
			RetGrid: p.RetGrid,
		}
		if p.Points > 0 {
			opts.Points = p.Points
		}
		if p.MinRet != nil {
			opts.MinRet = *p.MinRet
		}
		if p.MaxRet != nil {
			opts.MaxRet = *p.MaxRet
		}
		return NewMarkowitz(in.labels, in.mu, in.sigma, opts)
	},
	StrategyCAL: func(in strategyInputs, p StrategyParams) (Strategy, error) {
		opts := CALOptions{
			Options:  applyOptions(in.opts, p),
			Points:   in.points,
			RiskFree: in.riskFree,
		}
		if p.Points > 0 {
			opts.Points = p.Points
		}
		return NewCAL(in.labels, in.mu, in.sigma, opts)
	},
}

// newStrategy resolves a name against the registry
func newStrategy(name string, in strategyInputs, p StrategyParams) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q, available: %v", name, StrategyNames())
	}
	return factory(in, p)
}

// StrategyNames lists the registered strategies in stable order
func StrategyNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func applyOptions(base Options, p StrategyParams) Options {
	if p.Budget != nil {
		base.Budget = *p.Budget
	}
	if p.Gamma != nil {
		base.Gamma = *p.Gamma
	}
	return base
}
