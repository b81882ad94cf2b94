package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/store"
)

const statsCacheKey = "aggregate_stats"

// AggregateStats summarizes all sessions for the dashboard.
type AggregateStats struct {
	TotalSessions     int            `json:"total_sessions"`
	SessionsByStatus  map[string]int `json:"sessions_by_status"`
	SessionsByMethod  map[string]int `json:"sessions_by_method"`
	CompletedBooks    int            `json:"completed_books"`
	AvgChapterSeconds float64        `json:"avg_chapter_seconds"`
	ReliableSessions  int            `json:"reliable_sessions"`
}

// StatsService computes aggregate statistics across sessions behind a
// short-TTL process-wide cache. Entries expire by TTL only — there is no
// write-through invalidation, and callers tolerate slightly stale numbers.
type StatsService struct {
	store       store.SessionStore
	cache       *gocache.Cache
	minChapters int
}

// NewStatsService creates the stats service.
// Parameters:
//   - st: session store to aggregate over.
//   - ttl: cache expiry for computed aggregates.
//   - minChapters: completed chapters required before a session counts
//     toward the per-chapter average.
// Returns:
//   - *StatsService: initialized service.
func NewStatsService(st store.SessionStore, ttl time.Duration, minChapters int) *StatsService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsService{
		store:       st,
		cache:       gocache.New(ttl, 2*ttl),
		minChapters: minChapters,
	}
}

// Aggregate returns the (possibly cached) aggregate statistics.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *AggregateStats: computed or cached aggregates.
//   - error: non-nil if listing sessions fails on a cache miss.
func (s *StatsService) Aggregate(ctx context.Context) (*AggregateStats, error) {
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		return cached.(*AggregateStats), nil
	}

	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := s.compute(sessions)
	s.cache.SetDefault(statsCacheKey, stats)
	return stats, nil
}

func (s *StatsService) compute(sessions []domain.BookSession) *AggregateStats {
	stats := &AggregateStats{
		TotalSessions:    len(sessions),
		SessionsByStatus: make(map[string]int),
		SessionsByMethod: make(map[string]int),
	}

	var timingSum float64
	var timingCount int
	for _, session := range sessions {
		method := estimate.Classify(session.Form.ModelID)
		stats.SessionsByMethod[string(method)]++

		state := session.Progress
		if state == nil {
			stats.SessionsByStatus[string(domain.ProgressNotStarted)]++
			continue
		}
		stats.SessionsByStatus[string(state.Status)]++
		if state.IsComplete() {
			stats.CompletedBooks++
		}
		// Sessions with too few chapters skew the average and are excluded
		if len(state.StepTimings) >= s.minChapters {
			stats.ReliableSessions++
			for _, secs := range state.StepTimings {
				timingSum += secs
				timingCount++
			}
		}
	}
	if timingCount > 0 {
		stats.AvgChapterSeconds = timingSum / float64(timingCount)
	}
	return stats
}
