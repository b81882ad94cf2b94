package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/logger"
	"github.com/tobyn/inkwell/internal/progress"
	"github.com/tobyn/inkwell/internal/prompts"
	"github.com/tobyn/inkwell/internal/storage"
	"github.com/tobyn/inkwell/internal/store"
)

// TextGenerator abstracts the LLM client so the pipeline can be exercised
// without a network in tests.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*Completion, error)
	Model() string
}

// BookService orchestrates the staged generation of a novel: questions,
// draft, outline, the chapter-writing job, and the closing critique. Each
// session runs at most one writing job at a time, as a single sequential
// goroutine; pause requests are observed between chapters only.
type BookService struct {
	store   store.SessionStore
	llm     TextGenerator
	tracker *progress.Tracker
	params  *estimate.ParamsStore
	objects storage.ObjectStorage

	questionCount int
	defaultLength int
	pausePoll     time.Duration
}

// BookConfig holds configuration for the book service.
type BookConfig struct {
	QuestionCount int
	DefaultLength int // chapters, when the form leaves target length unset
	PausePoll     time.Duration
}

// NewBookService creates the generation orchestrator.
// Parameters:
//   - st: session store.
//   - llm: text generator.
//   - tracker: progress tracker persisting writing-job transitions.
//   - params: active linear parameters for remaining-time estimates.
//   - objects: object storage for finished manuscripts; may be nil.
//   - cfg: service configuration.
// Returns:
//   - *BookService: initialized service.
func NewBookService(
	st store.SessionStore,
	llm TextGenerator,
	tracker *progress.Tracker,
	params *estimate.ParamsStore,
	objects storage.ObjectStorage,
	cfg *BookConfig,
) *BookService {
	questionCount := cfg.QuestionCount
	if questionCount <= 0 {
		questionCount = 5
	}
	defaultLength := cfg.DefaultLength
	if defaultLength <= 0 {
		defaultLength = 12
	}
	pausePoll := cfg.PausePoll
	if pausePoll <= 0 {
		pausePoll = 500 * time.Millisecond
	}
	return &BookService{
		store:         st,
		llm:           llm,
		tracker:       tracker,
		params:        params,
		objects:       objects,
		questionCount: questionCount,
		defaultLength: defaultLength,
		pausePoll:     pausePoll,
	}
}

// CreateSession starts a new book run: persists the submitted form and asks
// the model for its clarifying questions.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - form: original user submission.
// Returns:
//   - *domain.BookSession: persisted session with questions populated.
//   - error: non-nil if generation or persistence fails.
func (s *BookService) CreateSession(ctx context.Context, form domain.SubmissionForm) (*domain.BookSession, error) {
	if form.ModelID == "" {
		form.ModelID = s.llm.Model()
	}
	session := &domain.BookSession{
		ID:       uuid.New().String(),
		Form:     domain.FormColumn(form),
		Chapters: domain.ChapterList{},
	}

	completion, err := s.llm.Generate(ctx, prompts.QuestionsPrompt(form, s.questionCount))
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}
	session.Questions = prompts.ParseLines(completion.Text)

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(session.Questions),
	}).Info(ctx, "Session created")
	return session, nil
}

// SubmitAnswers records the user's answers to the development questions.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: session to update.
//   - answers: one answer per question, in question order.
// Returns:
//   - error: store errors.
func (s *BookService) SubmitAnswers(ctx context.Context, sessionID string, answers []string) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Answers = answers
	return s.store.Save(ctx, session)
}

// GenerateDraft produces the short narrative draft from the premise and the
// answered questions.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: session to update.
// Returns:
//   - string: generated draft text.
//   - error: non-nil if generation or persistence fails.
func (s *BookService) GenerateDraft(ctx context.Context, sessionID string) (string, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	completion, err := s.llm.Generate(ctx, prompts.DraftPrompt(domain.SubmissionForm(session.Form), session.Questions, session.Answers))
	if err != nil {
		return "", fmt.Errorf("failed to generate draft: %w", err)
	}
	session.Draft = completion.Text
	if err := s.store.Save(ctx, session); err != nil {
		return "", err
	}
	return session.Draft, nil
}

// GenerateOutline turns the draft into the chapter outline that fixes the
// writing job's section plan.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: session to update.
// Returns:
//   - string: outline text, one chapter per line.
//   - error: non-nil if no draft exists or generation fails.
func (s *BookService) GenerateOutline(ctx context.Context, sessionID string) (string, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.Draft == "" {
		return "", fmt.Errorf("session %s has no draft to outline", sessionID)
	}
	chapters := session.Form.TargetLength
	if chapters <= 0 {
		chapters = s.defaultLength
	}
	completion, err := s.llm.Generate(ctx, prompts.OutlinePrompt(domain.SubmissionForm(session.Form), session.Draft, chapters))
	if err != nil {
		return "", fmt.Errorf("failed to generate outline: %w", err)
	}
	session.Outline = completion.Text
	if err := s.store.Save(ctx, session); err != nil {
		return "", err
	}
	return session.Outline, nil
}

// StartWriting fixes the step plan from the outline and launches the
// chapter-writing job in its own goroutine. The job is the session's single
// logical writer until it reaches a terminal state.
// Parameters:
//   - ctx: context used only for the initial validation reads.
//   - sessionID: session to write.
// Returns:
//   - error: non-nil if the outline is missing, unparseable, or a job
//     already ran for this session.
func (s *BookService) StartWriting(ctx context.Context, sessionID string) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Outline == "" {
		return fmt.Errorf("session %s has no outline", sessionID)
	}
	plans := prompts.ParseOutline(session.Outline)
	if len(plans) == 0 {
		return fmt.Errorf("session %s outline has no chapters", sessionID)
	}

	if err := s.tracker.Start(ctx, sessionID, len(plans), plans[0].Title); err != nil {
		return err
	}

	// The job outlives the HTTP request that started it
	jobCtx := logger.SetSessionID(context.Background(), sessionID)
	go s.runWriting(jobCtx, sessionID, plans)
	return nil
}

// ResumeInterrupted relaunches writing jobs that were running or paused when
// the process last stopped. The outline is re-parsed into the step plan and
// chapters already recorded are skipped; a paused job relaunches into its
// waiting loop and stays put until resumed. Jobs whose outline no longer
// yields the recorded number of steps are marked failed instead.
// Parameters:
//   - ctx: context for the store scan.
// Returns:
//   - int: number of jobs relaunched.
//   - error: store errors from the scan.
func (s *BookService) ResumeInterrupted(ctx context.Context) (int, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	relaunched := 0
	for i := range sessions {
		session := &sessions[i]
		state := session.Progress
		if state == nil || state.IsTerminal() {
			continue
		}
		plans := prompts.ParseOutline(session.Outline)
		if len(plans) != state.TotalSteps {
			reason := fmt.Sprintf("outline has %d chapters but the job recorded %d steps", len(plans), state.TotalSteps)
			if failErr := s.tracker.Fail(ctx, session.ID, reason); failErr != nil {
				logger.FromContext(ctx).WithError(failErr).Error("Failed to fail interrupted job")
			}
			continue
		}
		jobCtx := logger.SetSessionID(context.Background(), session.ID)
		go s.runWriting(jobCtx, session.ID, plans)
		relaunched++
	}
	return relaunched, nil
}

// runWriting is the sequential chapter loop. Between chapters it waits out
// pauses and stops on terminal states; an LLM failure marks the job Failed
// with the timings gathered so far retained for recalibration.
func (s *BookService) runWriting(ctx context.Context, sessionID string, plans []prompts.ChapterPlan) {
	for i := range plans {
		state, err := s.waitWhilePaused(ctx, sessionID)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Error("Writing job lost its session")
			return
		}
		if state == nil || state.IsTerminal() {
			return
		}
		// Resumed jobs skip chapters that are already written
		if i < state.CurrentStep {
			continue
		}

		session, err := s.store.Get(ctx, sessionID)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Error("Writing job lost its session")
			return
		}

		plan := plans[i]
		previous := ""
		if n := len(session.Chapters); n > 0 {
			previous = session.Chapters[n-1].Content
		}

		start := time.Now()
		completion, err := s.llm.Generate(ctx, prompts.ChapterPrompt(
			domain.SubmissionForm(session.Form), session.Outline, i+1, plan.Title, plan.Summary, previous))
		if err != nil {
			reason := fmt.Sprintf("chapter %d (%s): %v", i+1, plan.Title, err)
			if failErr := s.tracker.Fail(ctx, sessionID, reason); failErr != nil {
				logger.FromContext(ctx).WithError(failErr).Error("Failed to record step failure")
			}
			return
		}
		elapsed := time.Since(start).Seconds()

		nextSection := ""
		if i+1 < len(plans) {
			nextSection = plans[i+1].Title
		}
		chapter := domain.Chapter{
			Index:   i + 1,
			Title:   plan.Title,
			Content: completion.Text,
			Seconds: elapsed,
		}
		// A pause that lands while the chapter is generating, or between the
		// pause check and the recording, makes CompleteChapter reject the
		// step. The chapter is held and recorded after resume, so the step
		// counter never moves while the job reads as paused.
		for {
			state, err = s.tracker.CompleteChapter(ctx, sessionID, chapter, nextSection)
			if err == nil {
				break
			}
			if !errors.Is(err, domain.ErrInvalidTransition) {
				logger.FromContext(ctx).WithError(err).Error("Failed to record completed chapter")
				return
			}
			state, err = s.waitWhilePaused(ctx, sessionID)
			if err != nil {
				logger.FromContext(ctx).WithError(err).Error("Writing job lost its session")
				return
			}
			if state == nil || state.IsTerminal() {
				return
			}
		}

		logger.With(logger.Fields{}).
			WithStep(i+1).
			WithDuration(int64(elapsed*1000)).
			Info(ctx, "Chapter written: %s", plan.Title)

		if state.IsComplete() {
			s.finishBook(ctx, sessionID)
			return
		}
	}
}

// waitWhilePaused blocks between steps while the job is paused, polling the
// persisted state so an external resume is picked up. Returns the state
// that allowed the job to proceed, or a terminal one.
func (s *BookService) waitWhilePaused(ctx context.Context, sessionID string) (*domain.ProgressState, error) {
	for {
		state, err := s.tracker.Read(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if state == nil || state.Status != domain.ProgressPaused {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(s.pausePoll):
		}
	}
}

// finishBook attaches the critique and archives the manuscript once every
// chapter is written. Both are best-effort extras: failures are logged and
// never undo the completed job.
func (s *BookService) finishBook(ctx context.Context, sessionID string) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Completed job lost its session")
		return
	}

	completion, err := s.llm.Generate(ctx, prompts.CritiquePrompt(domain.SubmissionForm(session.Form), session.Outline))
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to generate critique")
	} else {
		session.Critique = completion.Text
	}

	if s.objects != nil {
		key := fmt.Sprintf("manuscripts/%s.txt", session.ID)
		manuscript := assembleManuscript(session)
		err := s.objects.Upload(ctx, key, strings.NewReader(manuscript), int64(len(manuscript)), "text/plain; charset=utf-8")
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to archive manuscript")
		} else {
			session.CoverKey = key
		}
	}

	if err := s.store.Save(ctx, session); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to save finished book")
	}
}

// assembleManuscript concatenates the finished chapters into one document.
func assembleManuscript(session *domain.BookSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", session.Form.Title)
	for _, ch := range session.Chapters {
		fmt.Fprintf(&b, "Chapter %d. %s\n\n%s\n\n", ch.Index, ch.Title, ch.Content)
	}
	return b.String()
}

// Pause halts the session's writing job between chapters.
func (s *BookService) Pause(ctx context.Context, sessionID string) error {
	return s.tracker.Pause(ctx, sessionID)
}

// Resume returns a paused writing job to the running state.
func (s *BookService) Resume(ctx context.Context, sessionID string) error {
	return s.tracker.Resume(ctx, sessionID)
}

// Progress reports the session's writing-job state together with the live
// remaining-time estimate.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: session to inspect.
// Returns:
//   - *domain.ProgressState: current state, nil when no job started.
//   - float64: estimated seconds remaining (0 once terminal).
//   - estimate.Confidence: estimate quality flag.
//   - error: store errors.
func (s *BookService) Progress(ctx context.Context, sessionID string) (*domain.ProgressState, float64, estimate.Confidence, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, 0, estimate.ConfidenceLow, err
	}
	state := session.Progress
	if state == nil || state.IsTerminal() {
		return state, 0, estimate.ConfidenceLow, nil
	}
	method := estimate.Classify(session.Form.ModelID)
	seconds, conf := s.params.Estimate(method, state.CurrentStep+1, state.TotalSteps)
	return state, seconds, conf, nil
}
