package optimization

// Result is the outcome of one strategy run. Frontier strategies carry one
// entry per converged grid point, single-point strategies exactly one.
// Non-convergence is not an error: Success is false and every slice is
// empty, callers must branch on Success before reading anything else.
type Result struct {
	Strategy  string      `json:"strategy"`
	Success   bool        `json:"success"`
	Labels    []string    `json:"labels"`
	Weights   [][]float64 `json:"weights"`
	Returns   []float64   `json:"returns"`
	Variances []float64   `json:"variances"`
	Sharpes   []float64   `json:"sharpes"`
}

func failedResult(strategy string, labels []string) *Result {
	return &Result{
		Strategy:  strategy,
		Success:   false,
		Labels:    labels,
		Weights:   [][]float64{},
		Returns:   []float64{},
		Variances: []float64{},
		Sharpes:   []float64{},
	}
}

// addPoint appends one converged solution to the result
func (r *Result) addPoint(w []float64, ret, variance, sharpe float64) {
	r.Weights = append(r.Weights, w)
	r.Returns = append(r.Returns, ret)
	r.Variances = append(r.Variances, variance)
	r.Sharpes = append(r.Sharpes, sharpe)
}
