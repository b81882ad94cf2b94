package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/store"
)

func TestRestorePhaseProjection(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, _ := newTestService(gen, nil)

	writing, _ := domain.NewProgressState(4)

	testCases := []struct {
		name    string
		session domain.BookSession
		want    domain.Phase
	}{
		{
			name:    "fresh session restores to questions",
			session: domain.BookSession{ID: "r1", Questions: domain.StringArray{"Q1"}},
			want:    domain.PhaseQuestions,
		},
		{
			name:    "answered session restores to draft",
			session: domain.BookSession{ID: "r2", Answers: domain.StringArray{"A1"}},
			want:    domain.PhaseDraft,
		},
		{
			name:    "outlined session restores to summary",
			session: domain.BookSession{ID: "r3", Draft: "d", Outline: "One :: a"},
			want:    domain.PhaseSummary,
		},
		{
			name:    "writing session restores to writing",
			session: domain.BookSession{ID: "r4", Outline: "One :: a", Progress: writing},
			want:    domain.PhaseWriting,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := st.Save(ctx, &tc.session); err != nil {
				t.Fatalf("save: %v", err)
			}
			view, err := svc.Restore(ctx, tc.session.ID)
			if err != nil {
				t.Fatalf("restore: %v", err)
			}
			if view.Phase != tc.want {
				t.Errorf("phase = %s, want %s", view.Phase, tc.want)
			}
		})
	}
}

func TestRestoreUnknownSession(t *testing.T) {
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, _, _ := newTestService(gen, nil)

	if _, err := svc.Restore(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRestoreRunningJobCarriesEstimate(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, params := newTestService(gen, nil)

	state, _ := domain.NewProgressState(5)
	state.CurrentStep = 2
	state.StepTimings = []float64{12, 14}
	_ = state.Pause()
	if err := st.Save(ctx, &domain.BookSession{
		ID:       "running",
		Form:     domain.FormColumn{ModelID: "gemini-flash"},
		Outline:  "One :: a",
		Progress: state,
	}); err != nil {
		t.Fatal(err)
	}

	params.SetFitted(estimate.MethodFlash, estimate.Params{A: 1, B: 10}, 10)

	view, err := svc.Restore(ctx, "running")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if view.Phase != domain.PhaseWriting {
		t.Errorf("phase = %s, want %s", view.Phase, domain.PhaseWriting)
	}
	// Steps 3, 4 and 5 remain: (3+10) + (4+10) + (5+10) = 42.
	if view.EstimatedSecondsRemaining != 42 {
		t.Errorf("estimate = %v, want 42", view.EstimatedSecondsRemaining)
	}
	if view.EstimateConfidence != estimate.ConfidenceHigh {
		t.Errorf("confidence = %s, want %s", view.EstimateConfidence, estimate.ConfidenceHigh)
	}
}

func TestRestoreCompletedJobUsesCachedTotals(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, _ := newTestService(gen, nil)

	state, _ := domain.NewProgressState(1)
	_ = state.RecordStep("", 90)
	state.TotalPages = 7
	state.TotalTimeMinutes = 1.5
	state.EstimatedCost = 0.01
	state.DerivedReady = true

	if err := st.Save(ctx, &domain.BookSession{
		ID:       "finished",
		Form:     domain.FormColumn{Title: "T"},
		Chapters: domain.ChapterList{{Index: 1, Title: "Only", Content: "text"}},
		Progress: state,
		Critique: "Strong opening.",
	}); err != nil {
		t.Fatal(err)
	}

	view, err := svc.Restore(ctx, "finished")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if view.Progress == nil || view.Progress.TotalPages != 7 {
		t.Errorf("cached totals not restored: %+v", view.Progress)
	}
	// A terminal job never carries a live estimate.
	if view.EstimatedSecondsRemaining != 0 || view.EstimateConfidence != "" {
		t.Errorf("terminal estimate = %v/%s, want zero values",
			view.EstimatedSecondsRemaining, view.EstimateConfidence)
	}
	if view.Critique != "Strong opening." {
		t.Errorf("critique = %q", view.Critique)
	}
}

func TestRestoreCoverURL(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	objects := newMemoryObjects()
	svc, st, _ := newTestService(gen, objects)

	if err := st.Save(ctx, &domain.BookSession{
		ID:       "covered",
		CoverKey: "manuscripts/covered.txt",
	}); err != nil {
		t.Fatal(err)
	}

	view, err := svc.Restore(ctx, "covered")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if view.CoverURL != "https://cdn.test/manuscripts/covered.txt" {
		t.Errorf("cover url = %q", view.CoverURL)
	}
}
