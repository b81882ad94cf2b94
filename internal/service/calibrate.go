package service

import (
	"context"

	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/logger"
	"github.com/tobyn/inkwell/internal/store"
)

// CalibrationService runs the batch recalibration pass: it reads the whole
// session history, refits the per-method linear parameters, and installs
// the successful fits in the active params store. Methods without enough
// usable history keep their previous parameters.
type CalibrationService struct {
	store  store.SessionStore
	params *estimate.ParamsStore
}

// NewCalibrationService creates the batch recalibration entry point.
// Parameters:
//   - st: session store holding the historical sessions.
//   - params: active params store updated on successful fits.
// Returns:
//   - *CalibrationService: initialized service.
func NewCalibrationService(st store.SessionStore, params *estimate.ParamsStore) *CalibrationService {
	return &CalibrationService{store: st, params: params}
}

// Run executes one recalibration pass over all persisted sessions.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *estimate.CalibrationResult: per-method outcome.
//   - error: non-nil if the session history cannot be read.
func (s *CalibrationService) Run(ctx context.Context) (*estimate.CalibrationResult, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	result := estimate.Calibrate(sessions, s.params)

	logger.With(logger.Fields{
		"sessions": len(sessions),
		"fitted":   len(result.Fitted),
		"skipped":  len(result.Skipped),
	}).Info(ctx, "Recalibration pass finished")
	return &result, nil
}
