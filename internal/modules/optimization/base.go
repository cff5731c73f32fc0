package optimization

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultIterations    = 50
	defaultFrontierSize  = 20
	weightBound          = 1.0
	penaltyWeight        = 1000.0
	convergenceTolerance = 1e-6
)

// Options carries the knobs shared by every strategy. Use DefaultOptions as
// the starting point; a zero budget is a valid (market-neutral) target, so
// the default must be set explicitly rather than inferred from zero values.
type Options struct {
	// Budget is the target sum of weights, in [-1, 1]. 1 means fully
	// invested with no leverage.
	Budget float64
	// Gamma is the L2 regularization strength. Zero disables the term.
	Gamma float64
	// Iterations is the number of independent solver restarts.
	Iterations int
	// Workers bounds the restart worker pool. Zero means one per CPU.
	Workers int
	// Seed makes restart starting points reproducible.
	Seed int64
}

// DefaultOptions returns the standard optimizer configuration
func DefaultOptions() Options {
	return Options{
		Budget:     1,
		Iterations: defaultIterations,
	}
}

// BaseOptimizer holds the shared state and machinery of every strategy:
// the annualized inputs, the budget constraints, the regularized variance
// objective and the once-computed cached result.
type BaseOptimizer struct {
	name       string
	labels     []string
	mu         []float64
	sigma      *mat.SymDense
	budget     float64
	gamma      float64
	iterations int
	workers    int
	seed       int64

	// objective is picked once at construction: plain variance, or
	// variance plus the L2 term when gamma is nonzero.
	objective func(w []float64) float64

	once   sync.Once
	result *Result

	// solve is installed by the concrete strategy
	solve func() *Result
}

func newBaseOptimizer(name string, labels []string, mu []float64, sigma *mat.SymDense, opts Options) (*BaseOptimizer, error) {
	b := &BaseOptimizer{
		name:       name,
		labels:     labels,
		iterations: opts.Iterations,
		workers:    opts.Workers,
		seed:       opts.Seed,
	}
	if b.iterations <= 0 {
		b.iterations = defaultIterations
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("%s: no constituent labels", name)
	}
	if err := b.SetMeanReturns(mu); err != nil {
		return nil, err
	}
	if err := b.SetCovariance(sigma); err != nil {
		return nil, err
	}
	if err := b.SetBudget(opts.Budget); err != nil {
		return nil, err
	}
	b.SetGamma(opts.Gamma)

	return b, nil
}

// SetMeanReturns validates and installs the expected-return vector.
// Shape mismatches fail here, never inside the solve.
func (b *BaseOptimizer) SetMeanReturns(mu []float64) error {
	if len(mu) != len(b.labels) {
		return fmt.Errorf("%s: mean returns length %d does not match %d labels", b.name, len(mu), len(b.labels))
	}
	b.mu = mu
	return nil
}

// SetCovariance validates and installs the covariance matrix
func (b *BaseOptimizer) SetCovariance(sigma *mat.SymDense) error {
	if sigma == nil {
		return fmt.Errorf("%s: covariance matrix is nil", b.name)
	}
	if n := sigma.SymmetricDim(); n != len(b.labels) {
		return fmt.Errorf("%s: covariance dimension %d does not match %d labels", b.name, n, len(b.labels))
	}
	b.sigma = sigma
	return nil
}

// SetBudget validates and installs the weight-sum target
func (b *BaseOptimizer) SetBudget(budget float64) error {
	if budget < -1 || budget > 1 {
		return fmt.Errorf("%s: budget %v outside [-1, 1]", b.name, budget)
	}
	b.budget = budget
	return nil
}

// SetGamma installs the regularization strength and picks the objective
func (b *BaseOptimizer) SetGamma(gamma float64) {
	b.gamma = gamma
	if gamma != 0 {
		b.objective = func(w []float64) float64 {
			return b.variance(w) + gamma*dot(w, w)
		}
	} else {
		b.objective = b.variance
	}
}

// Name returns the strategy name
func (b *BaseOptimizer) Name() string { return b.name }

// Labels returns the constituent labels in matrix order
func (b *BaseOptimizer) Labels() []string { return b.labels }

// Result runs the strategy at most once and returns the cached outcome.
// Repeated calls return the identical object.
func (b *BaseOptimizer) Result() *Result {
	b.once.Do(func() { b.result = b.solve() })
	return b.result
}

// variance computes w'Σw
func (b *BaseOptimizer) variance(w []float64) float64 {
	var v float64
	for i := range w {
		for j := range w {
			v += w[i] * w[j] * b.sigma.At(i, j)
		}
	}
	return v
}

// portfolioReturn computes μ'w
func (b *BaseOptimizer) portfolioReturn(w []float64) float64 {
	return dot(b.mu, w)
}

// budgetPenalty enforces the weight-sum equality and the gross-exposure cap
// sum(|w|) <= 2 - |budget| as quadratic penalty terms.
func (b *BaseOptimizer) budgetPenalty(w []float64) float64 {
	var sum, gross float64
	for _, v := range w {
		sum += v
		gross += math.Abs(v)
	}

	d := sum - b.budget
	p := penaltyWeight * d * d

	if excess := gross - (2 - math.Abs(b.budget)); excess > 0 {
		p += penaltyWeight * excess * excess
	}
	return p
}

// rescaleToBudget removes the residual budget error the penalty method
// leaves behind by scaling the solution so the weights sum exactly to the
// budget. A zero budget target cannot be rescaled and is returned as solved.
func (b *BaseOptimizer) rescaleToBudget(w []float64) []float64 {
	if b.budget == 0 {
		return w
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum == 0 {
		return w
	}
	scale := b.budget / sum
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = v * scale
	}
	return out
}

// sharpe is return over volatility, guarding the degenerate zero-variance case
func sharpe(ret, variance float64) float64 {
	return ret / math.Sqrt(math.Max(variance, 1e-10))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func (b *BaseOptimizer) muMin() float64 {
	m := b.mu[0]
	for _, v := range b.mu[1:] {
		m = math.Min(m, v)
	}
	return m
}

func (b *BaseOptimizer) muMax() float64 {
	m := b.mu[0]
	for _, v := range b.mu[1:] {
		m = math.Max(m, v)
	}
	return m
}
