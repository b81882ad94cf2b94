package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/progress"
	"github.com/tobyn/inkwell/internal/storage"
	"github.com/tobyn/inkwell/internal/store"
)

// fakeGenerator returns canned completions keyed by a substring of the
// prompt, so each pipeline stage can be scripted independently.
type fakeGenerator struct {
	mu        sync.Mutex
	responses map[string]string // prompt substring -> response text
	failOn    string            // prompt substring that triggers an error
	delay     time.Duration     // simulated generation latency
	calls     []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (*Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return nil, errors.New("model unavailable")
	}
	for key, text := range f.responses {
		if strings.Contains(prompt, key) {
			return &Completion{Text: text}, nil
		}
	}
	return &Completion{Text: "Generated text."}, nil
}

func (f *fakeGenerator) Model() string { return "test-pro" }

func (f *fakeGenerator) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// memoryObjects is an in-memory ObjectStorage for asserting archive writes.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte)}
}

func (m *memoryObjects) EnsureBucket(ctx context.Context) error { return nil }

func (m *memoryObjects) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryObjects) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) GetURL(key string) string { return "https://cdn.test/" + key }

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryObjects) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryObjects) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func newTestService(gen *fakeGenerator, objects *memoryObjects) (*BookService, *store.MemoryStore, *estimate.ParamsStore) {
	st := store.NewMemoryStore()
	params := estimate.NewParamsStore(nil, 3)
	pricing := progress.TokenPricing{
		PricePer1K:    map[string]float64{"default": 0.002},
		TokensPerPage: 400,
	}
	tracker := progress.NewTracker(st, pricing, 300)

	// Avoid packing a typed nil into the interface.
	var obj storage.ObjectStorage
	if objects != nil {
		obj = objects
	}
	svc := NewBookService(st, gen, tracker, params, obj, &BookConfig{
		QuestionCount: 3,
		DefaultLength: 2,
		PausePoll:     5 * time.Millisecond,
	})
	return svc, st, params
}

// waitForTerminal polls until the writing job reaches a terminal state.
func waitForTerminal(t *testing.T, svc *BookService, sessionID string) *domain.ProgressState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, _, _, err := svc.Progress(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("progress: %v", err)
		}
		if state != nil && state.IsTerminal() {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("writing job did not reach a terminal state")
	return nil
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{
		"clarifying questions": "1. Who is the hero?\n2. Where is it set?\n3. What is at stake?",
	}}
	svc, st, _ := newTestService(gen, nil)

	session, err := svc.CreateSession(ctx, domain.SubmissionForm{
		Title:   "The Cartographer",
		Genre:   "mystery",
		Premise: "A map that redraws itself.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.ID == "" {
		t.Error("session has no id")
	}
	if len(session.Questions) != 3 {
		t.Errorf("questions = %d, want 3", len(session.Questions))
	}
	if session.Questions[0] != "Who is the hero?" {
		t.Errorf("question[0] = %q, list marker not stripped", session.Questions[0])
	}
	// The model id defaults to the generator's model.
	if session.Form.ModelID != "test-pro" {
		t.Errorf("model id = %q, want test-pro", session.Form.ModelID)
	}

	stored, err := st.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if stored.CurrentPhase() != domain.PhaseQuestions {
		t.Errorf("phase = %s, want %s", stored.CurrentPhase(), domain.PhaseQuestions)
	}
}

func TestPipelineToCompletion(t *testing.T) {
	ctx := context.Background()
	outline := "The map arrives :: A plain envelope\nThe first redraw :: Streets shift overnight"
	gen := &fakeGenerator{responses: map[string]string{
		"clarifying questions":        "Who is the hero?",
		"development questions":       "A cartographer inherits a map.",
		"chapter outline for a novel": outline,
		"Write chapter":               strings.Repeat("word ", 320),
		"editorial critique":          "Tight pacing, thin middle.",
	}}
	objects := newMemoryObjects()
	svc, st, _ := newTestService(gen, objects)

	session, err := svc.CreateSession(ctx, domain.SubmissionForm{Title: "The Cartographer", Premise: "p"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := session.ID

	if err := svc.SubmitAnswers(ctx, id, []string{"A retired surveyor."}); err != nil {
		t.Fatalf("answers: %v", err)
	}
	if _, err := svc.GenerateDraft(ctx, id); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, err := svc.GenerateOutline(ctx, id); err != nil {
		t.Fatalf("outline: %v", err)
	}
	if err := svc.StartWriting(ctx, id); err != nil {
		t.Fatalf("start writing: %v", err)
	}

	state := waitForTerminal(t, svc, id)
	if !state.IsComplete() {
		t.Fatalf("status = %s, want %s (%s)", state.Status, domain.ProgressComplete, state.ErrorMessage)
	}

	final, err := st.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(final.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(final.Chapters))
	}
	if final.Chapters[0].Title != "The map arrives" {
		t.Errorf("chapter 1 title = %q", final.Chapters[0].Title)
	}
	if !final.Progress.DerivedReady || final.Progress.TotalPages < 1 {
		t.Errorf("derived totals missing: %+v", final.Progress)
	}
	if final.Critique == "" {
		t.Error("critique not attached")
	}

	key := fmt.Sprintf("manuscripts/%s.txt", id)
	data, ok := objects.get(key)
	if !ok {
		t.Fatalf("manuscript %s not archived", key)
	}
	if !strings.Contains(string(data), "The Cartographer") {
		t.Error("manuscript missing title")
	}
}

func TestStartWritingValidation(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, _ := newTestService(gen, nil)

	if err := st.Save(ctx, &domain.BookSession{ID: "no-outline", Draft: "d"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartWriting(ctx, "no-outline"); err == nil {
		t.Error("expected error for session without outline")
	}

	if err := svc.StartWriting(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestWritingFailureMarksJobFailed(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{
		responses: map[string]string{},
		failOn:    "Write chapter",
	}
	svc, st, _ := newTestService(gen, nil)

	if err := st.Save(ctx, &domain.BookSession{
		ID:      "doomed",
		Form:    domain.FormColumn{Title: "T", ModelID: "test-pro"},
		Draft:   "d",
		Outline: "Only chapter :: everything happens",
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartWriting(ctx, "doomed"); err != nil {
		t.Fatalf("start: %v", err)
	}

	state := waitForTerminal(t, svc, "doomed")
	if state.Status != domain.ProgressFailed {
		t.Fatalf("status = %s, want %s", state.Status, domain.ProgressFailed)
	}
	if !strings.Contains(state.ErrorMessage, "chapter 1") {
		t.Errorf("error message = %q", state.ErrorMessage)
	}
}

func TestPauseBlocksBetweenChapters(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}, delay: 20 * time.Millisecond}
	svc, st, _ := newTestService(gen, nil)

	if err := st.Save(ctx, &domain.BookSession{
		ID:      "pausable",
		Form:    domain.FormColumn{Title: "T", ModelID: "test-pro"},
		Draft:   "d",
		Outline: "One :: a\nTwo :: b\nThree :: c",
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartWriting(ctx, "pausable"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The first chapter is still generating; the pause lands mid-job.
	if err := svc.Pause(ctx, "pausable"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	state, _, _, err := svc.Progress(ctx, "pausable")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	pausedStep := state.CurrentStep

	// Give the job time to run several chapters if it wrongly ignored the
	// pause; an in-flight chapter is held back until resume.
	time.Sleep(100 * time.Millisecond)
	state, _, _, err = svc.Progress(ctx, "pausable")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if state.Status != domain.ProgressPaused {
		t.Fatalf("status = %s, want %s", state.Status, domain.ProgressPaused)
	}
	if state.CurrentStep != pausedStep {
		t.Errorf("job advanced from step %d to %d while paused", pausedStep, state.CurrentStep)
	}

	if err := svc.Resume(ctx, "pausable"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	final := waitForTerminal(t, svc, "pausable")
	if !final.IsComplete() {
		t.Errorf("status after resume = %s, want %s", final.Status, domain.ProgressComplete)
	}
}

func TestResumeInterruptedSkipsWrittenChapters(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{
		"Write chapter": strings.Repeat("word ", 320),
	}}
	svc, st, _ := newTestService(gen, nil)

	// A job that had written chapter 1 when the process stopped.
	state, err := domain.NewProgressState(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := state.RecordStep("Two", 30); err != nil {
		t.Fatal(err)
	}
	seeded := "Chapter one, written before the restart."
	if err := st.Save(ctx, &domain.BookSession{
		ID:      "interrupted",
		Form:    domain.FormColumn{Title: "T", ModelID: "test-pro"},
		Draft:   "d",
		Outline: "One :: a\nTwo :: b",
		Chapters: domain.ChapterList{
			{Index: 1, Title: "One", Content: seeded, Seconds: 30},
		},
		Progress: state,
	}); err != nil {
		t.Fatal(err)
	}

	relaunched, err := svc.ResumeInterrupted(ctx)
	if err != nil {
		t.Fatalf("resume interrupted: %v", err)
	}
	if relaunched != 1 {
		t.Fatalf("relaunched = %d, want 1", relaunched)
	}

	final := waitForTerminal(t, svc, "interrupted")
	if !final.IsComplete() {
		t.Fatalf("status = %s, want %s (%s)", final.Status, domain.ProgressComplete, final.ErrorMessage)
	}

	session, err := st.Get(ctx, "interrupted")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(session.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(session.Chapters))
	}
	if session.Chapters[0].Content != seeded {
		t.Error("already-written chapter was regenerated")
	}
	for _, prompt := range gen.callLog() {
		if strings.Contains(prompt, "Write chapter 1,") {
			t.Error("relaunched job asked the model for chapter 1 again")
		}
	}
}

func TestResumeInterruptedHoldsPausedJobs(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, _ := newTestService(gen, nil)

	state, err := domain.NewProgressState(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := state.Pause(); err != nil {
		t.Fatal(err)
	}
	if err := st.Save(ctx, &domain.BookSession{
		ID:       "parked",
		Form:     domain.FormColumn{Title: "T", ModelID: "test-pro"},
		Draft:    "d",
		Outline:  "One :: a\nTwo :: b",
		Progress: state,
	}); err != nil {
		t.Fatal(err)
	}

	relaunched, err := svc.ResumeInterrupted(ctx)
	if err != nil {
		t.Fatalf("resume interrupted: %v", err)
	}
	if relaunched != 1 {
		t.Fatalf("relaunched = %d, want 1", relaunched)
	}

	// The relaunched job waits out the pause instead of writing.
	time.Sleep(50 * time.Millisecond)
	got, _, _, err := svc.Progress(ctx, "parked")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got.Status != domain.ProgressPaused {
		t.Fatalf("status = %s, want %s", got.Status, domain.ProgressPaused)
	}
	if got.CurrentStep != 0 {
		t.Errorf("step = %d, want 0", got.CurrentStep)
	}

	if err := svc.Resume(ctx, "parked"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	final := waitForTerminal(t, svc, "parked")
	if !final.IsComplete() {
		t.Errorf("status after resume = %s, want %s", final.Status, domain.ProgressComplete)
	}
}

func TestResumeInterruptedFailsOnPlanMismatch(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, _ := newTestService(gen, nil)

	state, err := domain.NewProgressState(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Save(ctx, &domain.BookSession{
		ID:       "drifted",
		Form:     domain.FormColumn{Title: "T", ModelID: "test-pro"},
		Outline:  "One :: a\nTwo :: b",
		Progress: state,
	}); err != nil {
		t.Fatal(err)
	}

	relaunched, err := svc.ResumeInterrupted(ctx)
	if err != nil {
		t.Fatalf("resume interrupted: %v", err)
	}
	if relaunched != 0 {
		t.Errorf("relaunched = %d, want 0", relaunched)
	}

	got, _, _, err := svc.Progress(ctx, "drifted")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got.Status != domain.ProgressFailed {
		t.Errorf("status = %s, want %s", got.Status, domain.ProgressFailed)
	}
}

func TestProgressEstimate(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, params := newTestService(gen, nil)

	state, _ := domain.NewProgressState(5)
	state.CurrentStep = 3
	state.StepTimings = []float64{10, 12, 14}
	_ = state.Pause()
	if err := st.Save(ctx, &domain.BookSession{
		ID:       "estimating",
		Form:     domain.FormColumn{ModelID: "gemini-pro"},
		Progress: state,
	}); err != nil {
		t.Fatal(err)
	}

	params.SetFitted(estimate.MethodPro, estimate.Params{A: 2, B: 10}, 10)

	got, seconds, conf, err := svc.Progress(ctx, "estimating")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got.Status != domain.ProgressPaused {
		t.Errorf("status = %s", got.Status)
	}
	// Steps 4 and 5 remain: (2·4+10) + (2·5+10) = 38.
	if seconds != 38 {
		t.Errorf("seconds remaining = %v, want 38", seconds)
	}
	if conf != estimate.ConfidenceHigh {
		t.Errorf("confidence = %s, want %s", conf, estimate.ConfidenceHigh)
	}
}

func TestProgressTerminalReportsZero(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{responses: map[string]string{}}
	svc, st, _ := newTestService(gen, nil)

	state, _ := domain.NewProgressState(1)
	_ = state.RecordStep("", 30)
	if err := st.Save(ctx, &domain.BookSession{ID: "done", Progress: state}); err != nil {
		t.Fatal(err)
	}

	got, seconds, _, err := svc.Progress(ctx, "done")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !got.IsComplete() || seconds != 0 {
		t.Errorf("terminal progress = %+v seconds=%v, want complete with 0", got, seconds)
	}
}
