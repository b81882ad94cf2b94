package estimate

// Predict returns the expected remaining seconds for a job at step k of n
// under the linear model. It evaluates the exact closed-form sum
//
//	Σ_{i=k}^{n} (a·i + b) = a·(n−k+1)·(k+n)/2 + b·(n−k+1)
//
// rather than looping over the remaining steps. A job past its last step
// (k > n) has nothing remaining.
// Parameters:
//   - k: 1-based index of the next step not yet completed.
//   - n: total number of steps.
//   - p: linear model coefficients.
// Returns:
//   - float64: predicted remaining seconds; 0 when k > n.
func Predict(k, n int, p Params) float64 {
	if k > n {
		return 0
	}
	remaining := float64(n - k + 1)
	return p.A*remaining*float64(k+n)/2 + p.B*remaining
}
