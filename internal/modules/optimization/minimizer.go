package optimization

import (
	"math"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// solverSuccess is the set of convergence statuses accepted as a solve
var solverSuccess = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.GradientThreshold:   true,
	optimize.FunctionConvergence: true,
	optimize.StepConvergence:     true,
}

type restartOutcome struct {
	x   []float64
	obj float64
	ok  bool
}

// minimize runs the penalized objective from iterations independent random
// feasible starts on a bounded worker pool and reduces to the lowest
// successful convergence. Restarts share no state; the reduction happens
// after all of them finish. Returns ok=false when no restart converges.
func (b *BaseOptimizer) minimize(objective func([]float64) float64) ([]float64, float64, bool) {
	n := len(b.labels)
	fn := func(x []float64) float64 {
		return objective(clampWeights(x))
	}
	// The penalty terms make the objective only piecewise smooth, so the
	// gradient is numerical. It is needed for the quasi-Newton fallback.
	problem := optimize.Problem{
		Func: fn,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, fn, x, nil)
		},
	}

	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > b.iterations {
		workers = b.iterations
	}

	seeds := make(chan int64)
	outcomes := make(chan restartOutcome, b.iterations)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seeds {
				rng := rand.New(rand.NewSource(seed))
				outcomes <- solveOnce(problem, randomStart(rng, n))
			}
		}()
	}

	go func() {
		for i := 0; i < b.iterations; i++ {
			seeds <- b.seed + int64(i)
		}
		close(seeds)
		wg.Wait()
		close(outcomes)
	}()

	best := restartOutcome{obj: math.Inf(1)}
	for out := range outcomes {
		if out.ok && out.obj < best.obj {
			best = out
		}
	}

	if !best.ok {
		return nil, 0, false
	}
	return clampWeights(best.x), best.obj, true
}

// solveOnce attempts one restart with the derivative-free method, falling
// back to quasi-Newton on the numerical gradient when that does not
// converge.
func solveOnce(problem optimize.Problem, x0 []float64) restartOutcome {
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{}, &optimize.NelderMead{})
	if err == nil && solverSuccess[result.Status] {
		return restartOutcome{x: result.X, obj: result.F, ok: true}
	}

	result, err = optimize.Minimize(problem, x0, &optimize.Settings{}, &optimize.BFGS{})
	if err == nil && solverSuccess[result.Status] {
		return restartOutcome{x: result.X, obj: result.F, ok: true}
	}

	return restartOutcome{ok: false}
}

// randomStart draws uniform random weights renormalized to sum to one
func randomStart(rng *rand.Rand, n int) []float64 {
	x := make([]float64, n)
	sum := 0.0
	for i := range x {
		x[i] = rng.Float64()
		sum += x[i]
	}
	if sum > 0 {
		for i := range x {
			x[i] /= sum
		}
	}
	return x
}

// clampWeights projects weights onto the symmetric per-asset bounds
func clampWeights(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(-weightBound, math.Min(weightBound, v))
	}
	return out
}
