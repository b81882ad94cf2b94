package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/store"
)

func progressWith(status domain.ProgressStatus, timings []float64) *domain.ProgressState {
	return &domain.ProgressState{
		Status:      status,
		CurrentStep: len(timings),
		TotalSteps:  len(timings),
		StepTimings: timings,
	}
}

func TestStatsAggregate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	sessions := []*domain.BookSession{
		{ID: "a", Form: domain.FormColumn{ModelID: "gemini-pro"}},
		{
			ID:       "b",
			Form:     domain.FormColumn{ModelID: "gemini-pro"},
			Progress: progressWith(domain.ProgressComplete, []float64{10, 20, 30}),
		},
		{
			ID:       "c",
			Form:     domain.FormColumn{ModelID: "gemini-flash"},
			Progress: progressWith(domain.ProgressFailed, []float64{40}),
		},
		{
			ID:       "d",
			Form:     domain.FormColumn{ModelID: "mystery-model"},
			Progress: progressWith(domain.ProgressInProgress, []float64{60, 80}),
		},
	}
	for _, s := range sessions {
		if err := st.Save(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	svc := NewStatsService(st, time.Minute, 2)
	stats, err := svc.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if stats.TotalSessions != 4 {
		t.Errorf("TotalSessions = %d, want 4", stats.TotalSessions)
	}
	if stats.CompletedBooks != 1 {
		t.Errorf("CompletedBooks = %d, want 1", stats.CompletedBooks)
	}
	if got := stats.SessionsByStatus[string(domain.ProgressNotStarted)]; got != 1 {
		t.Errorf("not_started = %d, want 1", got)
	}
	if got := stats.SessionsByMethod["pro"]; got != 2 {
		t.Errorf("pro sessions = %d, want 2", got)
	}
	if got := stats.SessionsByMethod["default"]; got != 1 {
		t.Errorf("default sessions = %d, want 1", got)
	}

	// Only sessions b (3 timings) and d (2 timings) meet the 2-chapter bar:
	// (10+20+30+60+80)/5 = 40.
	if stats.ReliableSessions != 2 {
		t.Errorf("ReliableSessions = %d, want 2", stats.ReliableSessions)
	}
	if math.Abs(stats.AvgChapterSeconds-40) > 1e-9 {
		t.Errorf("AvgChapterSeconds = %v, want 40", stats.AvgChapterSeconds)
	}
}

func TestStatsCaching(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	if err := st.Save(ctx, &domain.BookSession{ID: "only"}); err != nil {
		t.Fatal(err)
	}

	svc := NewStatsService(st, time.Minute, 2)
	first, err := svc.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if first.TotalSessions != 1 {
		t.Fatalf("TotalSessions = %d, want 1", first.TotalSessions)
	}

	// New sessions are invisible until the cache entry expires.
	if err := st.Save(ctx, &domain.BookSession{ID: "later"}); err != nil {
		t.Fatal(err)
	}
	second, err := svc.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if second.TotalSessions != 1 {
		t.Errorf("TotalSessions = %d, want cached 1", second.TotalSessions)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	svc := NewStatsService(store.NewMemoryStore(), time.Minute, 2)
	stats, err := svc.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if stats.TotalSessions != 0 || stats.AvgChapterSeconds != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}
