package domain

import (
	"testing"
)

func TestCurrentPhase(t *testing.T) {
	progress, _ := NewProgressState(3)

	testCases := []struct {
		name    string
		session BookSession
		want    Phase
	}{
		{
			name:    "fresh session",
			session: BookSession{},
			want:    PhaseQuestions,
		},
		{
			name:    "questions generated but unanswered",
			session: BookSession{Questions: StringArray{"Who is the hero?"}},
			want:    PhaseQuestions,
		},
		{
			name:    "answers submitted",
			session: BookSession{Answers: StringArray{"A retired cartographer."}},
			want:    PhaseDraft,
		},
		{
			name:    "draft written",
			session: BookSession{Draft: "Once upon a time..."},
			want:    PhaseDraft,
		},
		{
			name: "outline written",
			session: BookSession{
				Draft:   "Once upon a time...",
				Outline: "Chapter 1 :: The map arrives",
			},
			want: PhaseSummary,
		},
		{
			name: "writing started",
			session: BookSession{
				Outline:  "Chapter 1 :: The map arrives",
				Progress: progress,
			},
			want: PhaseWriting,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.session.CurrentPhase()
			if got != tc.want {
				t.Errorf("CurrentPhase() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestContentRunes(t *testing.T) {
	s := BookSession{Chapters: ChapterList{
		{Index: 1, Content: "abcde"},
		{Index: 2, Content: "héllo"},
	}}
	if got := s.ContentRunes(); got != 10 {
		t.Errorf("ContentRunes() = %d, want 10", got)
	}
}
