package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/logger"
	"github.com/tobyn/inkwell/internal/store"
)

// Tracker applies progress transitions to the session that owns them and
// persists each one immediately, so a reconnecting client always sees the
// last completed step and never a partially applied one. Every transition
// is a read-modify-write of the whole session row, so transitions for one
// session are serialized behind a per-session lock: a pause arriving from
// an HTTP handler and a step recorded by the writer goroutine can never
// interleave and overwrite each other.
type Tracker struct {
	store        store.SessionStore
	cost         CostModel
	wordsPerPage int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker creates a progress tracker.
// Parameters:
//   - st: session store transitions are persisted through.
//   - cost: cost model applied once a job completes.
//   - wordsPerPage: page-size constant for deriving total pages.
// Returns:
//   - *Tracker: initialized tracker.
func NewTracker(st store.SessionStore, cost CostModel, wordsPerPage int) *Tracker {
	return &Tracker{
		store:        st,
		cost:         cost,
		wordsPerPage: wordsPerPage,
		locks:        make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the transition lock for one session, creating it on
// first use.
func (t *Tracker) sessionLock(sessionID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[sessionID] = l
	}
	return l
}

// Start fixes the step plan for a session's writing job and persists the
// fresh progress record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: owning session.
//   - totalSteps: number of ordered steps; immutable afterwards.
//   - firstSection: label of the first step in flight.
// Returns:
//   - error: store errors, or ErrInvalidTransition if a job already ran.
func (t *Tracker) Start(ctx context.Context, sessionID string, totalSteps int, firstSection string) error {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Progress != nil {
		return fmt.Errorf("%w: session %s already has a writing job", domain.ErrInvalidTransition, sessionID)
	}
	state, err := domain.NewProgressState(totalSteps)
	if err != nil {
		return err
	}
	state.CurrentSection = firstSection
	session.Progress = state
	return t.store.Save(ctx, session)
}

// RecordStep marks one step finished and persists the advanced state. When
// the final step completes the derived totals are computed once and cached
// on the persisted record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: owning session.
//   - nextSection: label of the step now in flight.
//   - elapsedSeconds: duration of the finished step.
// Returns:
//   - *domain.ProgressState: state after the transition.
//   - error: store errors or ErrInvalidTransition.
func (t *Tracker) RecordStep(ctx context.Context, sessionID, nextSection string, elapsedSeconds float64) (*domain.ProgressState, error) {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Progress == nil {
		return nil, fmt.Errorf("%w: session %s has no writing job", domain.ErrInvalidTransition, sessionID)
	}
	if err := session.Progress.RecordStep(nextSection, elapsedSeconds); err != nil {
		return nil, err
	}
	if session.Progress.IsComplete() {
		t.finalize(ctx, session)
	}
	if err := t.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session.Progress, nil
}

// CompleteChapter appends a finished chapter and records its step in a
// single persisted write, so a reconnecting client never sees the chapter
// without the advanced step counter or vice versa.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: owning session.
//   - chapter: completed chapter, with its elapsed seconds.
//   - nextSection: label of the step now in flight.
// Returns:
//   - *domain.ProgressState: state after the transition.
//   - error: store errors or ErrInvalidTransition.
func (t *Tracker) CompleteChapter(ctx context.Context, sessionID string, chapter domain.Chapter, nextSection string) (*domain.ProgressState, error) {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Progress == nil {
		return nil, fmt.Errorf("%w: session %s has no writing job", domain.ErrInvalidTransition, sessionID)
	}
	if err := session.Progress.RecordStep(nextSection, chapter.Seconds); err != nil {
		return nil, err
	}
	session.Chapters = append(session.Chapters, chapter)
	if session.Progress.IsComplete() {
		t.finalize(ctx, session)
	}
	if err := t.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session.Progress, nil
}

// Pause halts a running job between steps without discarding state.
func (t *Tracker) Pause(ctx context.Context, sessionID string) error {
	return t.transition(ctx, sessionID, func(p *domain.ProgressState) error {
		return p.Pause()
	})
}

// Resume returns a paused job to the running state.
func (t *Tracker) Resume(ctx context.Context, sessionID string) error {
	return t.transition(ctx, sessionID, func(p *domain.ProgressState) error {
		return p.Resume()
	})
}

// Fail records an unrecoverable step error. Timings gathered before the
// failure stay on the session for later recalibration.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: owning session.
//   - reason: error description stored on the state.
// Returns:
//   - error: store errors or ErrInvalidTransition.
func (t *Tracker) Fail(ctx context.Context, sessionID, reason string) error {
	return t.transition(ctx, sessionID, func(p *domain.ProgressState) error {
		return p.Fail(reason)
	})
}

// Read returns the current progress state of a session's writing job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: owning session.
// Returns:
//   - *domain.ProgressState: current state, nil when no job started.
//   - error: store errors.
func (t *Tracker) Read(ctx context.Context, sessionID string) (*domain.ProgressState, error) {
	session, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Progress, nil
}

func (t *Tracker) transition(ctx context.Context, sessionID string, apply func(*domain.ProgressState) error) error {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Progress == nil {
		return fmt.Errorf("%w: session %s has no writing job", domain.ErrInvalidTransition, sessionID)
	}
	if err := apply(session.Progress); err != nil {
		return err
	}
	return t.store.Save(ctx, session)
}

// finalize computes the derived completion totals exactly once: total pages
// from chapter word counts, total minutes from step timings (wall clock when
// timings are missing), and the cost estimate from the pricing model.
func (t *Tracker) finalize(ctx context.Context, session *domain.BookSession) {
	p := session.Progress
	if p.DerivedReady {
		return
	}

	words := 0
	for _, ch := range session.Chapters {
		words += len(strings.Fields(ch.Content))
	}
	pages := 0
	if t.wordsPerPage > 0 {
		pages = words / t.wordsPerPage
	}
	// A completed book never reports zero pages, however short its chapters
	if pages < 1 {
		pages = 1
	}

	method := estimate.Classify(session.Form.ModelID)
	p.TotalPages = pages
	p.TotalTimeMinutes = p.ElapsedSeconds() / 60
	p.EstimatedCost = t.cost.EstimateCost(method, pages)
	p.DerivedReady = true

	logger.With(logger.Fields{
		"pages":   pages,
		"minutes": p.TotalTimeMinutes,
	}).WithSize(session.ContentRunes()).Info(ctx, "Writing job completed")
}
