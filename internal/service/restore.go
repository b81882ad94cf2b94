package service

import (
	"context"

	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/estimate"
)

// RestoreView is the client-facing reconstruction of a session: everything
// a reconnecting frontend needs to land on the right screen.
type RestoreView struct {
	SessionID string                `json:"session_id"`
	Phase     domain.Phase          `json:"phase"`
	Form      domain.SubmissionForm `json:"form"`

	Questions []string         `json:"questions,omitempty"`
	Answers   []string         `json:"answers,omitempty"`
	Draft     string           `json:"draft,omitempty"`
	Outline   string           `json:"outline,omitempty"`
	Chapters  []domain.Chapter `json:"chapters,omitempty"`

	Progress *domain.ProgressState `json:"progress,omitempty"`
	Critique string                `json:"critique,omitempty"`
	CoverURL string                `json:"cover_url,omitempty"`

	// Populated only while a writing job is running.
	EstimatedSecondsRemaining float64             `json:"estimated_seconds_remaining,omitempty"`
	EstimateConfidence        estimate.Confidence `json:"estimate_confidence,omitempty"`
}

// Restore reconstructs the client view of a session. The phase is a pure
// projection of which artifacts are populated; it is recomputed on every
// read and never stored. A running job additionally carries a live
// remaining-time estimate — estimation problems degrade to the method's
// default parameters with low confidence rather than failing the restore.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: session to reconstruct.
// Returns:
//   - *RestoreView: reconstructed view.
//   - error: store errors only.
func (s *BookService) Restore(ctx context.Context, sessionID string) (*RestoreView, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &RestoreView{
		SessionID: session.ID,
		Phase:     session.CurrentPhase(),
		Form:      domain.SubmissionForm(session.Form),
		Questions: session.Questions,
		Answers:   session.Answers,
		Draft:     session.Draft,
		Outline:   session.Outline,
		Chapters:  session.Chapters,
		Progress:  session.Progress,
		Critique:  session.Critique,
	}
	if session.CoverKey != "" && s.objects != nil {
		view.CoverURL = s.objects.GetURL(session.CoverKey)
	}

	// Derived completion totals are already cached on the persisted state
	// by the tracker, so a completed session restores without touching
	// chapter content.
	if state := session.Progress; state != nil && !state.IsTerminal() {
		method := estimate.Classify(session.Form.ModelID)
		seconds, conf := s.params.Estimate(method, state.CurrentStep+1, state.TotalSteps)
		view.EstimatedSecondsRemaining = seconds
		view.EstimateConfidence = conf
	}
	return view, nil
}
