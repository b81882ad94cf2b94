package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ProgressStatus represents the lifecycle state of a chapter-writing job.
// Values include ProgressNotStarted, ProgressInProgress, ProgressPaused,
// ProgressComplete, and ProgressFailed.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressPaused     ProgressStatus = "paused"
	ProgressComplete   ProgressStatus = "complete"
	ProgressFailed     ProgressStatus = "failed"
)

// ErrInvalidTransition is returned when a progress transition would violate
// the state machine (e.g. recording a step on a completed job).
var ErrInvalidTransition = errors.New("invalid progress transition")

// ProgressState tracks how far a writing job has advanced. It is owned by
// exactly one BookSession and persisted as a JSON column on the session row.
type ProgressState struct {
	Status         ProgressStatus `json:"status"`
	CurrentStep    int            `json:"current_step"`
	TotalSteps     int            `json:"total_steps"`
	CurrentSection string         `json:"current_section,omitempty"`
	StepTimings    []float64      `json:"step_timings,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`

	// Derived totals, computed once on completion and cached so restore
	// never has to re-walk chapter content.
	TotalPages       int     `json:"total_pages,omitempty"`
	TotalTimeMinutes float64 `json:"total_time_minutes,omitempty"`
	EstimatedCost    float64 `json:"estimated_cost,omitempty"`
	DerivedReady     bool    `json:"derived_ready,omitempty"`
}

// NewProgressState creates a progress record with the step plan fixed.
// Parameters:
//   - totalSteps: number of ordered steps in the job; immutable afterwards.
// Returns:
//   - *ProgressState: record in the InProgress state at step 0.
//   - error: non-nil if totalSteps is negative.
func NewProgressState(totalSteps int) (*ProgressState, error) {
	if totalSteps < 0 {
		return nil, fmt.Errorf("%w: total steps must be non-negative, got %d", ErrInvalidTransition, totalSteps)
	}
	now := time.Now()
	return &ProgressState{
		Status:      ProgressInProgress,
		CurrentStep: 0,
		TotalSteps:  totalSteps,
		StepTimings: []float64{},
		StartedAt:   &now,
	}, nil
}

// RecordStep marks one step as finished: appends its elapsed seconds,
// advances the step counter, and updates the in-flight section label.
// When the last step completes the state transitions to Complete and the
// completion timestamp is recorded.
// Parameters:
//   - nextSection: label of the step now in flight; ignored on completion.
//   - elapsedSeconds: duration of the finished step.
// Returns:
//   - error: ErrInvalidTransition if the job is not in progress or all
//     steps are already done.
func (p *ProgressState) RecordStep(nextSection string, elapsedSeconds float64) error {
	if p.Status != ProgressInProgress {
		return fmt.Errorf("%w: cannot record step while %s", ErrInvalidTransition, p.Status)
	}
	if p.CurrentStep >= p.TotalSteps {
		return fmt.Errorf("%w: all %d steps already recorded", ErrInvalidTransition, p.TotalSteps)
	}
	p.StepTimings = append(p.StepTimings, elapsedSeconds)
	p.CurrentStep++
	if p.CurrentStep >= p.TotalSteps {
		p.Status = ProgressComplete
		p.CurrentSection = ""
		now := time.Now()
		p.CompletedAt = &now
		return nil
	}
	p.CurrentSection = nextSection
	return nil
}

// Pause halts the job without discarding any state so resumption continues
// at the same step index.
// Returns:
//   - error: ErrInvalidTransition unless the job is in progress.
func (p *ProgressState) Pause() error {
	if p.Status != ProgressInProgress {
		return fmt.Errorf("%w: cannot pause while %s", ErrInvalidTransition, p.Status)
	}
	p.Status = ProgressPaused
	return nil
}

// Resume returns a paused job to the InProgress state.
// Returns:
//   - error: ErrInvalidTransition unless the job is paused.
func (p *ProgressState) Resume() error {
	if p.Status != ProgressPaused {
		return fmt.Errorf("%w: cannot resume while %s", ErrInvalidTransition, p.Status)
	}
	p.Status = ProgressInProgress
	return nil
}

// Fail records an unrecoverable step error. Timings gathered up to the
// failure are retained for recalibration.
// Parameters:
//   - reason: human-readable error description.
// Returns:
//   - error: ErrInvalidTransition if the job already reached a terminal state.
func (p *ProgressState) Fail(reason string) error {
	if p.Status != ProgressInProgress && p.Status != ProgressPaused {
		return fmt.Errorf("%w: cannot fail while %s", ErrInvalidTransition, p.Status)
	}
	p.Status = ProgressFailed
	p.ErrorMessage = reason
	now := time.Now()
	p.CompletedAt = &now
	return nil
}

// IsComplete reports whether every step finished successfully.
func (p *ProgressState) IsComplete() bool {
	return p.Status == ProgressComplete
}

// IsTerminal reports whether no further transitions are possible.
func (p *ProgressState) IsTerminal() bool {
	return p.Status == ProgressComplete || p.Status == ProgressFailed
}

// ElapsedSeconds returns the sum of recorded per-step timings. When no
// timings were recorded it falls back to the wall-clock delta between the
// start and completion timestamps.
func (p *ProgressState) ElapsedSeconds() float64 {
	if len(p.StepTimings) > 0 {
		var total float64
		for _, t := range p.StepTimings {
			total += t
		}
		return total
	}
	if p.StartedAt != nil && p.CompletedAt != nil {
		return p.CompletedAt.Sub(*p.StartedAt).Seconds()
	}
	return 0
}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded progress record, or nil for a nil state.
//   - error: non-nil if marshaling fails.
func (p *ProgressState) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (p *ProgressState) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan ProgressState")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, p)
}
