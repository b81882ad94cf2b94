package estimate

import "math"

// degenerateDenominator is the threshold below which the OLS denominator
// is treated as zero (all observations share one step index).
const degenerateDenominator = 1e-10

// Params are the coefficients of the per-step duration model a·i + b,
// where i is the 1-based step index. Both are non-negative by construction:
// Fit rejects any result where either coefficient comes out negative.
type Params struct {
	A float64 `json:"a" mapstructure:"a"`
	B float64 `json:"b" mapstructure:"b"`
}

// Observation is one (step index, elapsed seconds) pair from a finished
// session, pooled per method during batch recalibration.
type Observation struct {
	StepIndex int
	Seconds   float64
}

// Fit computes an ordinary least-squares fit of elapsed seconds against
// step index using the closed-form sums. The boolean result is false — a
// normal outcome, not an error — when the data cannot support a fit and
// the caller should keep its previous parameters:
//   - fewer than two observations,
//   - a numerically degenerate denominator (all step indices equal),
//   - a negative slope or intercept, which is physically meaningless for
//     per-step generation time.
//
// Parameters:
//   - obs: timing observations to fit.
// Returns:
//   - Params: fitted coefficients, valid only when ok is true.
//   - bool: true when the fit succeeded.
func Fit(obs []Observation) (Params, bool) {
	n := float64(len(obs))
	if len(obs) < 2 {
		return Params{}, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, o := range obs {
		x := float64(o.StepIndex)
		y := o.Seconds
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if math.Abs(denom) < degenerateDenominator {
		return Params{}, false
	}

	a := (n*sumXY - sumX*sumY) / denom
	b := (sumY - a*sumX) / n
	if a < 0 || b < 0 {
		return Params{}, false
	}

	return Params{A: a, B: b}, true
}
