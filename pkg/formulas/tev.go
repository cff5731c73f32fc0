package formulas

import "math"

// RollingTEV calculates rolling tracking error volatility of a return series
// against a benchmark return series, annualized.
//
// Each output point is the standard deviation of the active return
// (r - benchmark) over the trailing window, measured around the active
// return's own mean over that window. The first window-1 points are NaN.
func RollingTEV(returns, benchmark []float64, window int) []float64 {
	n := len(returns)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if n == 0 || len(benchmark) != n || window < 2 || window > n {
		return out
	}

	active := make([]float64, n)
	for i := range returns {
		active[i] = returns[i] - benchmark[i]
	}

	for i := window - 1; i < n; i++ {
		out[i] = StdDev(active[i-window+1:i+1]) * math.Sqrt(TradingDaysPerYear)
	}

	return out
}
