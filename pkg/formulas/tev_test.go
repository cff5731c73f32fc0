package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingTEV_MatchesActiveReturnStdDev(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.03, 0.00}
	benchmark := []float64{0.005, 0.01, 0.00, 0.01, 0.005}
	window := 3

	tev := RollingTEV(returns, benchmark, window)
	require.Len(t, tev, len(returns))

	// Leading points have no full window.
	assert.True(t, math.IsNaN(tev[0]))
	assert.True(t, math.IsNaN(tev[1]))

	// Each point is the std dev of the trailing active returns, annualized.
	active := []float64{0.005, 0.01, -0.01, 0.02, -0.005}
	for i := window - 1; i < len(returns); i++ {
		expected := StdDev(active[i-window+1:i+1]) * math.Sqrt(TradingDaysPerYear)
		assert.InDelta(t, expected, tev[i], 1e-12)
	}
}

func TestRollingTEV_IdenticalSeriesIsZero(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.03}

	tev := RollingTEV(returns, returns, 2)

	for i := 1; i < len(tev); i++ {
		assert.InDelta(t, 0.0, tev[i], 1e-12)
	}
}

func TestRollingTEV_BadInput(t *testing.T) {
	tev := RollingTEV([]float64{0.01, 0.02}, []float64{0.01}, 2)
	for _, v := range tev {
		assert.True(t, math.IsNaN(v))
	}

	assert.Empty(t, RollingTEV(nil, nil, 3))
}
