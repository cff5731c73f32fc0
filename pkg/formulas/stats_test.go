package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, Mean(nil))
}

func TestStdDev(t *testing.T) {
	// Sample std dev of {2, 4, 4, 4, 5, 5, 7, 9} is sqrt(32/7)
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(data), 1e-12)
	assert.Equal(t, 0.0, StdDev(nil))
}

func TestSimpleReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := SimpleReturns(prices)

	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)
}

func TestSimpleReturns_ZeroBasePriceIsNaN(t *testing.T) {
	returns := SimpleReturns([]float64{0, 100, 110})

	require.Len(t, returns, 2)
	assert.True(t, math.IsNaN(returns[0]))
	assert.InDelta(t, 0.10, returns[1], 1e-12)
}

func TestSimpleReturns_TooShort(t *testing.T) {
	assert.Empty(t, SimpleReturns([]float64{100}))
	assert.Empty(t, SimpleReturns(nil))
}

func TestAnnualizedReturn(t *testing.T) {
	// A full year of flat 0.1% daily returns compounds to (1.001)^252 - 1.
	returns := make([]float64, TradingDaysPerYear)
	for i := range returns {
		returns[i] = 0.001
	}

	expected := math.Pow(1.001, TradingDaysPerYear) - 1
	assert.InDelta(t, expected, AnnualizedReturn(returns), 1e-9)
}

func TestAnnualizedReturn_ShortSeries(t *testing.T) {
	// Under 3 days the cumulative return is returned un-annualized.
	assert.InDelta(t, 0.02, AnnualizedReturn([]float64{0.02}), 1e-12)
}

func TestCompoundReturn(t *testing.T) {
	// Zero native return: adjusted return equals the FX return exactly.
	assert.Equal(t, 0.05, CompoundReturn(0, 0.05))

	// General case matches (1+r)(1+rfx)-1.
	r, rFx := 0.02, -0.01
	assert.InDelta(t, (1+r)*(1+rFx)-1, CompoundReturn(r, rFx), 1e-15)
}

func TestSharpe(t *testing.T) {
	assert.InDelta(t, 0.5, Sharpe(0.1, 0.04), 1e-12)
	assert.Equal(t, 0.0, Sharpe(0.1, 0))
	assert.Equal(t, 0.0, Sharpe(0.1, -1))
}

func TestAnnualizedVolatility(t *testing.T) {
	daily := []float64{0.01, -0.01, 0.02, -0.02}
	assert.InDelta(t, StdDev(daily)*math.Sqrt(252), AnnualizedVolatility(daily), 1e-12)
}
