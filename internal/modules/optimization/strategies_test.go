package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// Two-asset fixture: annualized mean returns and covariance
var (
	twoLabels = []string{"AAA", "BBB"}
	twoMu     = []float64{0.10, 0.05}
	twoSigma  = mat.NewSymDense(2, []float64{
		0.04, 0.01,
		0.01, 0.09,
	})
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 42
	return opts
}

func weightSum(w []float64) float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

func grossExposure(w []float64) float64 {
	var s float64
	for _, v := range w {
		s += math.Abs(v)
	}
	return s
}

func TestMinVarianceTwoAssets(t *testing.T) {
	s, err := NewMinVariance(twoLabels, twoMu, twoSigma, testOptions())
	require.NoError(t, err)

	r := s.Result()
	require.True(t, r.Success)
	require.Len(t, r.Weights, 1)

	w := r.Weights[0]
	assert.InDelta(t, 1.0, weightSum(w), 1e-6)

	// Diversifying must not be worse than holding either asset alone
	assert.LessOrEqual(t, r.Variances[0], 0.04+1e-6)
	assert.LessOrEqual(t, r.Variances[0], 0.09+1e-6)

	// Analytic solution is w ∝ Σ^-1·1 = [8/11, 3/11]
	assert.InDelta(t, 8.0/11.0, w[0], 0.02)
	assert.InDelta(t, 3.0/11.0, w[1], 0.02)
}

func TestMaxSharpeBeatsMinVariance(t *testing.T) {
	mv, err := NewMinVariance(twoLabels, twoMu, twoSigma, testOptions())
	require.NoError(t, err)
	ms, err := NewMaxSharpe(twoLabels, twoMu, twoSigma, testOptions())
	require.NoError(t, err)

	mvr := mv.Result()
	msr := ms.Result()
	require.True(t, mvr.Success)
	require.True(t, msr.Success)

	assert.GreaterOrEqual(t, msr.Sharpes[0], mvr.Sharpes[0]-1e-6)
	assert.InDelta(t, 1.0, weightSum(msr.Weights[0]), 1e-6)
}

func TestMaxSharpeVarianceConsistency(t *testing.T) {
	s, err := NewMaxSharpe(twoLabels, twoMu, twoSigma, testOptions())
	require.NoError(t, err)

	r := s.Result()
	require.True(t, r.Success)

	// The reported variance is back-derived from the solver's objective;
	// it must agree with the direct w'Σw computation.
	direct := s.variance(r.Weights[0])
	assert.InEpsilon(t, direct, r.Variances[0], 1e-3)
}

func TestResultIdempotent(t *testing.T) {
	s, err := NewMinVariance(twoLabels, twoMu, twoSigma, testOptions())
	require.NoError(t, err)

	first := s.Result()
	second := s.Result()
	assert.Same(t, first, second)
}

func TestBudgetInvariantAcrossBudgets(t *testing.T) {
	for _, budget := range []float64{1, 0.5, -0.5} {
		opts := testOptions()
		opts.Budget = budget

		s, err := NewMinVariance(twoLabels, twoMu, twoSigma, opts)
		require.NoError(t, err)

		r := s.Result()
		require.True(t, r.Success, "budget %v", budget)

		w := r.Weights[0]
		assert.InDelta(t, budget, weightSum(w), 1e-6, "budget %v", budget)
		assert.LessOrEqual(t, grossExposure(w), 2-math.Abs(budget)+1e-3, "budget %v", budget)
	}
}

func TestGammaShrinksWeights(t *testing.T) {
	plain, err := NewMinVariance(twoLabels, twoMu, twoSigma, testOptions())
	require.NoError(t, err)

	opts := testOptions()
	opts.Gamma = 10
	shrunk, err := NewMinVariance(twoLabels, twoMu, twoSigma, opts)
	require.NoError(t, err)

	pr := plain.Result()
	sr := shrunk.Result()
	require.True(t, pr.Success)
	require.True(t, sr.Success)

	// A strong L2 term pulls the solution toward equal weights
	spread := func(w []float64) float64 { return math.Abs(w[0] - w[1]) }
	assert.Less(t, spread(sr.Weights[0]), spread(pr.Weights[0])+1e-9)
}

func TestMarkowitzFrontier(t *testing.T) {
	opts := DefaultMarkowitzOptions()
	opts.Seed = 42
	opts.Points = 8

	s, err := NewMarkowitz(twoLabels, twoMu, twoSigma, opts)
	require.NoError(t, err)

	r := s.Result()
	require.True(t, r.Success)
	require.NotEmpty(t, r.Weights)
	assert.LessOrEqual(t, len(r.Weights), 8)

	// The grid is clipped to the constituents' return range
	for i, ret := range r.Returns {
		assert.GreaterOrEqual(t, ret, 0.05-1e-3)
		assert.LessOrEqual(t, ret, 0.10+1e-3)
		assert.InDelta(t, 1.0, weightSum(r.Weights[i]), 1e-6)
	}
}

func TestMarkowitzRetGridOverride(t *testing.T) {
	opts := DefaultMarkowitzOptions()
	opts.Seed = 42
	opts.RetGrid = []float64{0.06, 0.08}

	s, err := NewMarkowitz(twoLabels, twoMu, twoSigma, opts)
	require.NoError(t, err)

	r := s.Result()
	require.True(t, r.Success)
	require.Len(t, r.Returns, 2)
	assert.InDelta(t, 0.06, r.Returns[0], 1e-3)
	assert.InDelta(t, 0.08, r.Returns[1], 1e-3)
}

func TestRiskParityLongOnly(t *testing.T) {
	s, err := NewRiskParity(twoLabels, twoMu, twoSigma, testOptions())
	require.NoError(t, err)

	r := s.Result()
	require.True(t, r.Success)

	w := r.Weights[0]
	assert.InDelta(t, 1.0, weightSum(w), 1e-6)
	for i, v := range w {
		assert.GreaterOrEqual(t, v, -1e-6, "weight %d", i)
	}

	// Equal risk contribution tilts toward the lower-variance asset
	assert.Greater(t, w[0], w[1])
}

func TestCALLendingLineAndFrontier(t *testing.T) {
	opts := DefaultCALOptions()
	opts.Seed = 42
	opts.Points = 10
	opts.RiskFree = 0.02

	s, err := NewCAL(twoLabels, twoMu, twoSigma, opts)
	require.NoError(t, err)

	r := s.Result()
	require.True(t, r.Success)
	require.NotEmpty(t, r.Weights)

	// The first lending-line point sits at the risk-free return with all
	// weights scaled to zero
	assert.InDelta(t, 0.02, r.Returns[0], 1e-9)
	for _, v := range r.Weights[0] {
		assert.InDelta(t, 0.0, v, 1e-9)
	}

	// Variance is non-decreasing moving up the lending line
	for i := 1; i < len(r.Variances); i++ {
		if r.Returns[i] < r.Returns[i-1] {
			continue
		}
		assert.GreaterOrEqual(t, r.Variances[i], r.Variances[i-1]-1e-4)
	}
}

func TestEagerValidation(t *testing.T) {
	_, err := NewMinVariance(twoLabels, []float64{0.10}, twoSigma, testOptions())
	assert.Error(t, err, "mean returns length mismatch")

	_, err = NewMinVariance(twoLabels, twoMu, mat.NewSymDense(3, nil), testOptions())
	assert.Error(t, err, "covariance dimension mismatch")

	_, err = NewMinVariance(twoLabels, twoMu, nil, testOptions())
	assert.Error(t, err, "nil covariance")

	opts := testOptions()
	opts.Budget = 1.5
	_, err = NewMinVariance(twoLabels, twoMu, twoSigma, opts)
	assert.Error(t, err, "budget out of range")

	_, err = NewMinVariance(nil, nil, twoSigma, testOptions())
	assert.Error(t, err, "no labels")
}

func TestFailedResultShape(t *testing.T) {
	r := failedResult(StrategyMinVariance, twoLabels)
	assert.False(t, r.Success)
	assert.Empty(t, r.Weights)
	assert.Empty(t, r.Returns)
	assert.Empty(t, r.Variances)
	assert.Empty(t, r.Sharpes)
	assert.NotNil(t, r.Weights)
}

func TestMinVarianceNonConvergence(t *testing.T) {
	// NaN covariance entries pass the dimension checks but poison the
	// objective, so no restart can converge
	nanSigma := mat.NewSymDense(2, []float64{
		math.NaN(), math.NaN(),
		math.NaN(), math.NaN(),
	})
	opts := testOptions()
	opts.Iterations = 4

	s, err := NewMinVariance(twoLabels, twoMu, nanSigma, opts)
	require.NoError(t, err)

	r := s.Result()
	assert.False(t, r.Success)
	assert.Empty(t, r.Weights)
	assert.Empty(t, r.Returns)
	assert.Empty(t, r.Variances)
	assert.Empty(t, r.Sharpes)
	assert.NotNil(t, r.Weights)
	assert.Equal(t, twoLabels, r.Labels)
}
