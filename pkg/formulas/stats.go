package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization constant used across the toolkit.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// SimpleReturns converts a price series into simple percentage returns.
// The output has one fewer element than the input:
// Returns[i] = (Price[i+1] - Price[i]) / Price[i].
// A NaN is emitted where the base price is zero or itself NaN, so gaps in
// the price history stay visible instead of collapsing to zero returns.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 || math.IsNaN(prices[i-1]) || math.IsNaN(prices[i]) {
			returns[i-1] = math.NaN()
			continue
		}
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}

	return returns
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
// Formula: Std Dev of Daily Returns x sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// AnnualizedReturn calculates the compound annual growth rate from a series
// of daily returns.
//
// Formula: ((1+r1)*(1+r2)*...*(1+rN))^(252/N) - 1
func AnnualizedReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= (1 + r)
	}

	numPeriods := float64(len(returns))

	// For very short periods (< 3 days), return the simple cumulative return
	// to avoid extreme annualization.
	if numPeriods < 3 {
		return cumulative - 1
	}

	years := numPeriods / TradingDaysPerYear
	return math.Pow(cumulative, 1.0/years) - 1
}

// CompoundReturn combines an asset return with an FX return into the
// currency-adjusted return of the asset expressed in the target currency.
//
// Formula: r_adj = r + r_fx + r*r_fx
//
// This is the exact composition of compounded simple returns,
// (1+r)(1+r_fx) - 1, not a linear approximation.
func CompoundReturn(r, rFx float64) float64 {
	return r + rFx + r*rFx
}

// Sharpe calculates the Sharpe ratio from an expected return and a variance.
// Returns 0 when variance is not strictly positive.
func Sharpe(expectedReturn, variance float64) float64 {
	if variance <= 0 {
		return 0
	}
	return expectedReturn / math.Sqrt(variance)
}
