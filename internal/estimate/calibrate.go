package estimate

import (
	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/logger"
)

// CalibrationResult summarizes one batch recalibration pass.
type CalibrationResult struct {
	Fitted  map[Method]Params `json:"fitted"`
	Counts  map[Method]int    `json:"observations"`
	Skipped []Method          `json:"skipped,omitempty"`
}

// Calibrate pools per-step timings from historical sessions, buckets them by
// each session's classified method, and refits the linear parameters per
// bucket. Methods whose bucket cannot support a fit keep their existing
// parameters: stale-but-valid beats degenerate or missing. Rejected fits are
// logged because a negative coefficient points at a data-quality problem
// upstream, not just missing history.
// Parameters:
//   - sessions: historical sessions, read-only; only sessions with recorded
//     step timings contribute.
//   - store: params store updated in place on successful fits.
// Returns:
//   - CalibrationResult: per-method outcome of the pass.
func Calibrate(sessions []domain.BookSession, store *ParamsStore) CalibrationResult {
	buckets := make(map[Method][]Observation)
	for _, s := range sessions {
		if s.Progress == nil || len(s.Progress.StepTimings) == 0 {
			continue
		}
		m := Classify(s.Form.ModelID)
		for i, secs := range s.Progress.StepTimings {
			buckets[m] = append(buckets[m], Observation{StepIndex: i + 1, Seconds: secs})
		}
	}

	result := CalibrationResult{
		Fitted: make(map[Method]Params),
		Counts: make(map[Method]int),
	}
	for _, m := range Methods {
		obs := buckets[m]
		p, ok := Fit(obs)
		if !ok {
			result.Skipped = append(result.Skipped, m)
			if len(obs) >= 2 {
				logger.With(logger.Fields{
					"method": string(m),
					"count":  len(obs),
				}).Warn(nil, "Calibration fit rejected, keeping previous parameters")
			}
			continue
		}
		store.SetFitted(m, p, len(obs))
		result.Fitted[m] = p
		result.Counts[m] = len(obs)
	}
	return result
}
