package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"quiz-session-service/internal/domain"
)

// ProfileProvider supplies the learner profile backing a session.
type ProfileProvider interface {
	FetchProfile(ctx context.Context) (domain.Profile, error)
}

// QuestionSource produces a fresh question set for a config.
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, cfg domain.SessionConfig) ([]domain.Question, error)
}

// AttemptStore fetches scheduled attempts. resume=true reattaches to a
// previously started attempt; resume=false starts a brand-new attempt
// against the same quiz.
type AttemptStore interface {
	FetchScheduledAttempt(ctx context.Context, quizID, attemptID string, resume bool) (domain.Attempt, error)
}

// QuotaChecker reports how many fresh quizzes the learner has left.
type QuotaChecker interface {
	CheckQuizQuota(ctx context.Context, userID string) (int, error)
}

// Dependencies are the collaborators injected into a Controller. Quota and
// Feedback may be nil; the rest are required.
type Dependencies struct {
	Profiles ProfileProvider
	Questions QuestionSource
	Attempts AttemptStore
	Results  ResultStore
	Feedback FeedbackGenerator
	Quota    QuotaChecker
	Clock    Clock
}

// Options select the session mode at construction. A non-empty QuizID takes
// the scheduled path; a CarriedConfig with no QuizID auto-starts a fresh
// session on Start ("take a quiz on what you just studied").
type Options struct {
	UserID             string
	Location           string
	CarriedConfig      *domain.SessionConfig
	QuizID             string
	AttemptID          string
	SecondsPerQuestion int
}

const defaultSecondsPerQuestion = 30

type submitTrigger string

const (
	triggerUser      submitTrigger = "user"
	triggerExpiry    submitTrigger = "expiry"
	triggerDeparture submitTrigger = "departure"
)

// Controller is the session state machine: Config -> Loading -> Active ->
// Submitting -> Results, with a Blocked overlay while a departure prompt is
// up. It owns the timer, the ledger, and the navigation guard for exactly
// one session instance.
type Controller struct {
	deps     Dependencies
	opts     Options
	pipeline *SubmissionPipeline
	guard    *NavigationGuard
	baseCtx  context.Context

	mu           sync.Mutex
	phase        domain.Phase
	starting     bool
	blocked      bool
	cfg          domain.SessionConfig
	questions    []domain.Question
	ledger       *AnswerLedger
	timer        *TimerEngine
	startedAt    time.Time
	totalSeconds int
	scheduled    bool
	result       *domain.ResultRecord
	subscribers  map[chan Event]struct{}

	// submitToken guarantees the Active -> Submitting transition happens at
	// most once, whichever of submit/expiry/departure arrives first.
	submitToken atomic.Bool
}

func NewController(deps Dependencies, opts Options) *Controller {
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if opts.SecondsPerQuestion <= 0 {
		opts.SecondsPerQuestion = defaultSecondsPerQuestion
	}
	return &Controller{
		deps:        deps,
		opts:        opts,
		pipeline:    NewSubmissionPipeline(deps.Results, deps.Feedback, deps.Clock.Now),
		guard:       NewNavigationGuard(),
		baseCtx:     context.Background(),
		phase:       domain.PhaseConfig,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel of session events plus a cancel function. The
// current phase is delivered immediately.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	phase := c.phase
	c.mu.Unlock()

	ch <- Event{Kind: EventPhaseChanged, Phase: phase}

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Phase reports the current lifecycle phase.
func (c *Controller) Phase() domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Blocked reports whether a departure prompt is up.
func (c *Controller) Blocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked
}

// Questions returns the active question set.
func (c *Controller) Questions() []domain.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questions
}

// Remaining reports seconds left on the countdown, zero when no timer runs.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	timer := c.timer
	c.mu.Unlock()
	if timer == nil {
		return 0
	}
	return timer.Remaining()
}

// Result returns the completed record once the session reached results.
func (c *Controller) Result() (domain.ResultRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.ResultRecord{}, false
	}
	return *c.result, true
}

// Start drives the session out of the config phase when its mode is already
// decided: the scheduled path when a quiz identity is present, the fresh
// path when a config was carried over. Otherwise it waits for Configure.
func (c *Controller) Start(ctx context.Context) error {
	if c.opts.QuizID != "" {
		return c.beginScheduled(ctx)
	}
	if c.opts.CarriedConfig != nil {
		return c.Configure(ctx, *c.opts.CarriedConfig)
	}
	return nil
}

// Configure validates preconditions and takes the fresh path: generate a
// question set and enter the active phase. Precondition and acquisition
// failures leave the session in a re-enterable config phase.
func (c *Controller) Configure(ctx context.Context, cfg domain.SessionConfig) error {
	if err := c.claimStart(); err != nil {
		return err
	}

	profile, err := c.deps.Profiles.FetchProfile(ctx)
	if err != nil {
		c.failToConfig(domain.ErrProfileUnavailable.Error())
		return fmt.Errorf("%w: %v", domain.ErrProfileUnavailable, err)
	}
	if !profile.Complete() {
		c.failToConfig(domain.ErrProfileIncomplete.Error())
		return domain.ErrProfileIncomplete
	}
	if cfg.Age == 0 {
		cfg.Age = profile.Age
	}
	if cfg.Language == "" {
		cfg.Language = profile.Language
	}

	if c.deps.Quota != nil {
		remaining, err := c.deps.Quota.CheckQuizQuota(ctx, c.opts.UserID)
		if err != nil {
			// Quota service trouble should not lock learners out.
			log.Printf("quota check for %s: %v", c.opts.UserID, err)
		} else if remaining <= 0 {
			c.failToConfig(domain.ErrQuotaExceeded.Error())
			return domain.ErrQuotaExceeded
		}
	}

	c.enterLoading()

	questions, err := c.deps.Questions.GenerateQuestions(ctx, cfg)
	if err != nil || len(questions) == 0 {
		if err == nil {
			err = domain.ErrGenerationFailed
		}
		c.guard.Disarm()
		c.failToConfig(fmt.Sprintf("could not load questions: %v", err))
		return fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	questions = renumber(questions)
	total := len(questions) * c.opts.SecondsPerQuestion
	c.activate(cfg, questions, nil, total, total, false, c.deps.Clock.Now(), false)
	return nil
}

// beginScheduled takes the resume path: fetch the attempt (falling back to
// a brand-new attempt on the same quiz), restore answers, and start the
// clock from the remaining time.
func (c *Controller) beginScheduled(ctx context.Context) error {
	if err := c.claimStart(); err != nil {
		return err
	}

	c.enterLoading()

	att, err := c.deps.Attempts.FetchScheduledAttempt(ctx, c.opts.QuizID, c.opts.AttemptID, c.opts.AttemptID != "")
	if err != nil && c.opts.AttemptID != "" {
		// The stored attempt is unusable; start over on the same quiz.
		log.Printf("resume attempt %s: %v; starting fresh attempt", c.opts.AttemptID, err)
		att, err = c.deps.Attempts.FetchScheduledAttempt(ctx, c.opts.QuizID, "", false)
	}
	if err != nil {
		c.guard.Disarm()
		c.failToConfig(fmt.Sprintf("could not load quiz: %v", err))
		return fmt.Errorf("%w: %v", domain.ErrAttemptUnavailable, err)
	}

	questions := renumber(att.Questions)
	plan := PlanResume(att, questions, c.deps.Clock.Now(), c.opts.SecondsPerQuestion)

	subject := att.Subject
	if subject == "" {
		subject = att.QuizID
	}
	cfg := domain.SessionConfig{
		Subject:       subject,
		QuestionCount: len(questions),
	}
	c.activate(cfg, questions, plan.RestoredAnswers, plan.TotalSeconds, plan.RemainingSeconds, plan.WarningAlreadyFired, att.StartedAt, true)
	return nil
}

// SelectAnswer records a choice during the active phase.
func (c *Controller) SelectAnswer(number int, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseActive {
		return domain.ErrNotActive
	}
	return c.ledger.Select(number, label)
}

// Submit is the explicit learner-initiated submission. A no-op once any
// trigger has already claimed the submission token.
func (c *Controller) Submit(ctx context.Context) {
	c.trySubmit(ctx, triggerUser)
}

// RequestNavigation reports a departure attempt from the surrounding
// application. Blocked attempts raise a prompt and must be resolved via
// ConfirmDeparture or CancelDeparture.
func (c *Controller) RequestNavigation(target string, unload bool) NavigationDecision {
	decision := c.guard.Attempt(target, unload)
	if decision == NavigationBlocked {
		c.mu.Lock()
		c.blocked = true
		phase := c.phase
		c.mu.Unlock()
		c.broadcast(Event{Kind: EventNavigationBlocked, Phase: phase, Target: target})
	}
	return decision
}

// ConfirmDeparture resolves a blocked navigation by finishing the session
// first: an active session submits, a still-loading one is abandoned. The
// deferred intent is replayed once that completes.
func (c *Controller) ConfirmDeparture(ctx context.Context) {
	intent, ok := c.guard.Confirm()
	if !ok {
		return
	}

	c.mu.Lock()
	c.blocked = false
	phase := c.phase
	c.mu.Unlock()
	c.guard.Disarm()

	switch phase {
	case domain.PhaseActive:
		c.trySubmit(ctx, triggerDeparture)
	case domain.PhaseLoading:
		// Nothing has been answered yet; drop the load instead of
		// submitting an empty result.
		c.mu.Lock()
		c.phase = domain.PhaseConfig
		c.starting = false
		c.mu.Unlock()
		c.broadcast(Event{Kind: EventPhaseChanged, Phase: domain.PhaseConfig})
	}

	c.broadcast(Event{Kind: EventNavigationReleased, Target: intent.Target})
}

// CancelDeparture drops the deferred intent; the session continues exactly
// as it was.
func (c *Controller) CancelDeparture() {
	c.guard.Cancel()
	c.mu.Lock()
	c.blocked = false
	phase := c.phase
	c.mu.Unlock()
	c.broadcast(Event{Kind: EventPhaseChanged, Phase: phase})
}

// claimStart reserves the start path for exactly one caller. The check and
// the claim sit in one critical section so two concurrent starts cannot both
// pass the phase guard while the first is still off in a collaborator call.
// The claim is released when the session reaches active or falls back to
// config, so a failed start stays re-enterable.
func (c *Controller) claimStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseConfig || c.starting {
		return fmt.Errorf("session already started (phase %s)", c.phase)
	}
	c.starting = true
	return nil
}

func (c *Controller) enterLoading() {
	c.mu.Lock()
	c.phase = domain.PhaseLoading
	c.mu.Unlock()
	c.guard.Arm(c.opts.Location)
	c.broadcast(Event{Kind: EventPhaseChanged, Phase: domain.PhaseLoading})
}

func (c *Controller) failToConfig(message string) {
	c.mu.Lock()
	c.phase = domain.PhaseConfig
	c.starting = false
	c.mu.Unlock()
	c.broadcast(Event{Kind: EventSessionError, Phase: domain.PhaseConfig, Message: message})
	c.broadcast(Event{Kind: EventPhaseChanged, Phase: domain.PhaseConfig})
}

// activate installs the question set and starts the clock. An already
// expired resume submits immediately instead of starting a dead timer.
func (c *Controller) activate(cfg domain.SessionConfig, questions []domain.Question, restored map[int]string, total, remaining int, warned bool, startedAt time.Time, scheduled bool) {
	c.mu.Lock()
	if c.phase != domain.PhaseLoading {
		// A confirmed departure abandoned the load while the fetch was in
		// flight; keep no partial state.
		c.starting = false
		c.mu.Unlock()
		return
	}
	c.cfg = cfg
	c.questions = questions
	c.ledger = NewAnswerLedger(len(questions))
	for number, label := range restored {
		if err := c.ledger.Select(number, label); err != nil {
			log.Printf("restore answer %d: %v", number, err)
		}
	}
	c.startedAt = startedAt
	c.totalSeconds = total
	c.scheduled = scheduled
	c.phase = domain.PhaseActive
	c.starting = false
	c.mu.Unlock()

	c.broadcast(Event{Kind: EventPhaseChanged, Phase: domain.PhaseActive, Remaining: remaining})

	if remaining <= 0 {
		c.trySubmit(c.baseCtx, triggerExpiry)
		return
	}

	timer := NewTimerEngine(c.deps.Clock, TimerCallbacks{
		OnTick:    c.onTick,
		OnWarning: c.onWarning,
		OnExpired: c.onExpired,
	})
	c.mu.Lock()
	// Re-check under the lock so a submission that raced activation cannot
	// leave an orphaned ticking clock behind.
	if c.phase == domain.PhaseActive {
		c.timer = timer
		timer.Start(total, remaining, warned)
	}
	c.mu.Unlock()
}

func (c *Controller) onTick(remaining int) {
	c.broadcast(Event{Kind: EventTick, Remaining: remaining})
}

func (c *Controller) onWarning(remaining int) {
	c.broadcast(Event{Kind: EventWarning, Remaining: remaining})
}

func (c *Controller) onExpired() {
	c.trySubmit(c.baseCtx, triggerExpiry)
}

// trySubmit is the single entry into the submitting phase. The first caller
// to claim the token runs the pipeline; everyone after is a no-op.
func (c *Controller) trySubmit(ctx context.Context, trigger submitTrigger) bool {
	if !c.submitToken.CompareAndSwap(false, true) {
		return false
	}

	c.mu.Lock()
	if c.phase != domain.PhaseActive {
		c.mu.Unlock()
		c.submitToken.Store(false)
		return false
	}
	c.phase = domain.PhaseSubmitting
	c.blocked = false
	questions := c.questions
	snapshot := c.ledger.Snapshot()
	cfg := c.cfg
	startedAt := c.startedAt
	scheduled := c.scheduled
	timer := c.timer
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	c.guard.Disarm()
	c.broadcast(Event{Kind: EventPhaseChanged, Phase: domain.PhaseSubmitting})
	log.Printf("submitting session for %s (trigger=%s, answered=%d/%d)", c.opts.UserID, trigger, len(snapshot), len(questions))

	record := c.pipeline.Run(ctx, c.opts.UserID, cfg, questions, snapshot, startedAt, scheduled)

	c.mu.Lock()
	c.phase = domain.PhaseResults
	c.result = &record
	c.mu.Unlock()

	c.broadcast(Event{Kind: EventPhaseChanged, Phase: domain.PhaseResults})
	c.broadcast(Event{Kind: EventSessionCompleted, Result: &record})
	return true
}

func (c *Controller) broadcast(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest update so a slow subscriber cannot block the
			// session.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func renumber(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := range out {
		out[i].Number = i + 1
	}
	return out
}
