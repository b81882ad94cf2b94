package estimate

import (
	"sync"
)

// Default coefficients used when no configuration and no history exist for
// a method.
const (
	DefaultA = 0.2
	DefaultB = 40.0
)

// Confidence qualifies how trustworthy an estimate is for client display.
type Confidence string

const (
	// ConfidenceHigh: the active parameters were refit from at least the
	// configured minimum number of historical observations.
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow: the estimate fell back to configured or built-in
	// defaults.
	ConfidenceLow Confidence = "low"
)

// ParamsStore holds the active linear parameters per method. It is loaded
// once at startup from configuration, atomically replaced by calibration or
// an explicit reload, and read concurrently by live predictions.
type ParamsStore struct {
	mu       sync.RWMutex
	byMethod map[Method]Params
	counts   map[Method]int // observations behind the last successful fit
	minObs   int
}

// NewParamsStore creates a store seeded from configured per-method
// parameters.
// Parameters:
//   - configured: initial parameters keyed by method; MethodDefault acts as
//     the fallback entry. Missing entries use the built-in defaults.
//   - minObservations: observation count required before a fitted entry is
//     reported with high confidence.
// Returns:
//   - *ParamsStore: initialized store.
func NewParamsStore(configured map[Method]Params, minObservations int) *ParamsStore {
	s := &ParamsStore{
		byMethod: make(map[Method]Params),
		counts:   make(map[Method]int),
		minObs:   minObservations,
	}
	s.Reload(configured)
	return s
}

// Reload replaces the active parameters with a fresh configuration snapshot.
// Calibration counts are reset: reloaded entries are configured values, not
// fitted ones.
// Parameters:
//   - configured: parameters keyed by method; nil entries fall back to the
//     built-in defaults.
func (s *ParamsStore) Reload(configured map[Method]Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMethod = make(map[Method]Params, len(Methods))
	s.counts = make(map[Method]int)
	fallback := Params{A: DefaultA, B: DefaultB}
	if p, ok := configured[MethodDefault]; ok {
		fallback = p
	}
	for _, m := range Methods {
		if p, ok := configured[m]; ok {
			s.byMethod[m] = p
		} else {
			s.byMethod[m] = fallback
		}
	}
}

// Get returns the active parameters for a method, falling back to the
// default entry for unknown methods.
// Parameters:
//   - m: method tag.
// Returns:
//   - Params: active coefficients for the method.
func (s *ParamsStore) Get(m Method) Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.byMethod[m]; ok {
		return p
	}
	return s.byMethod[MethodDefault]
}

// SetFitted installs freshly calibrated parameters for a method along with
// the number of observations that informed the fit.
// Parameters:
//   - m: method tag.
//   - p: fitted coefficients.
//   - observations: pooled observation count behind the fit.
func (s *ParamsStore) SetFitted(m Method, p Params, observations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMethod[m] = p
	s.counts[m] = observations
}

// Snapshot returns a copy of the active parameters for persistence or
// inspection.
func (s *ParamsStore) Snapshot() map[Method]Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Method]Params, len(s.byMethod))
	for m, p := range s.byMethod {
		out[m] = p
	}
	return out
}

// Estimate predicts remaining seconds for a job at step k of n using the
// method's active parameters, and reports how trustworthy the figure is.
// Confidence is high only when the active entry came from a fit over at
// least the configured minimum number of observations; configured or
// built-in defaults always report low.
// Parameters:
//   - m: classified method of the running job.
//   - k: 1-based index of the next step not yet completed.
//   - n: total steps.
// Returns:
//   - float64: predicted remaining seconds.
//   - Confidence: estimate quality flag.
func (s *ParamsStore) Estimate(m Method, k, n int) (float64, Confidence) {
	p := s.Get(m)

	s.mu.RLock()
	count := s.counts[m]
	s.mu.RUnlock()

	conf := ConfidenceLow
	if count >= s.minObs && s.minObs > 0 {
		conf = ConfidenceHigh
	}
	return Predict(k, n, p), conf
}
