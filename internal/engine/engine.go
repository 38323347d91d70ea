package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"quiz-session-engine/internal/clock"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/ledger"
	"quiz-session-engine/internal/questions"
	"quiz-session-engine/internal/timer"
)

var (
	// ErrNotStarted is returned by operations that need a running session.
	ErrNotStarted = errors.New("session not started")

	// ErrUnloaded is returned by input arriving after Unload.
	ErrUnloaded = errors.New("session unloaded")
)

// Persistence saves and restores session snapshots. *persist.Adapter implements it.
type Persistence interface {
	Restore(ctx context.Context) *domain.Snapshot
	Save(ctx context.Context, snap domain.Snapshot)
	ScheduleSave(source func() domain.Snapshot)
	Clear(ctx context.Context)
	Close()
}

// Submitter delivers the final answers. *submission.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionAck, error)
}

// Options configures an Engine. Zero values get defaults: the system clock,
// slog.Default, a one second tick and the default quiz duration.
type Options struct {
	QuizID       string
	Duration     time.Duration
	ResultsURL   string
	TickInterval time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
}

// State is a read-only view of the navigation state machine.
type State struct {
	Index      int
	Completed  bool
	Submitting bool
	Submitted  bool
	Timer      timer.State
}

// Engine drives one quiz session: navigation, answers, countdown, persistence
// and submission. It is safe for concurrent use; UI events, the countdown tick
// and debounced saves all serialise on one mutex.
type Engine struct {
	store     *questions.Store
	ledger    *ledger.Ledger
	renderer  Renderer
	persist   Persistence
	submitter Submitter
	clock     clock.Clock
	log       *slog.Logger
	opts      Options

	mu         sync.Mutex
	ctx        context.Context
	started    bool
	unloaded   bool
	index      int
	completed  bool
	countdown  *timer.Countdown
	ticker     *clock.Ticker
	submitting bool
	submitted  bool

	// pendingAuto records an expiry that landed while a manual submission
	// was in flight; it runs if that submission fails.
	pendingAuto bool
}

// New builds an idle engine; nothing is rendered or scheduled until Start.
func New(store *questions.Store, renderer Renderer, persist Persistence, submitter Submitter, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Duration <= 0 {
		opts.Duration = domain.DefaultQuizMinutes * time.Minute
	}
	return &Engine{
		store:     store,
		ledger:    ledger.New(),
		renderer:  renderer,
		persist:   persist,
		submitter: submitter,
		clock:     opts.Clock,
		log:       opts.Logger.With("quiz_id", opts.QuizID),
		opts:      opts,
	}
}

// Start restores a previous snapshot if one exists, renders the current
// screen and starts the countdown. A restored deadline that has already
// passed goes straight to auto-submission. ctx bounds the tick-triggered
// submission.
func (e *Engine) Start(ctx context.Context) {
	snap := e.persist.Restore(ctx)

	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.ctx = ctx
	now := e.clock.Now()

	if snap != nil {
		e.ledger.Restore(snap.Answers, snap.Flags, e.store.Total())
		if snap.CurrentIndex >= 0 && snap.CurrentIndex < e.store.Total() {
			e.index = snap.CurrentIndex
		}
		e.completed = snap.Completed
		e.countdown = timer.Resume(snap.Deadline)
	} else {
		e.countdown = timer.Start(now, e.opts.Duration)
	}
	expired := e.countdown.Check(now)
	e.log.Info("session started",
		"restored", snap != nil,
		"index", e.index,
		"answered", e.ledger.AnsweredCount(),
		"remaining", e.countdown.Remaining(now),
	)

	e.renderLocked()
	e.renderTimerLocked(now)
	var initial *domain.Snapshot
	if !expired {
		e.ticker = clock.Every(e.clock, e.opts.TickInterval, e.tick)
		s := e.snapshotLocked()
		initial = &s
	}
	e.mu.Unlock()

	if expired {
		e.expire()
		return
	}
	// Persist the deadline right away so a reload before any mutation reuses it.
	e.persist.Save(ctx, *initial)
}

func (e *Engine) tick() {
	e.mu.Lock()
	if e.submitted || e.countdown.State() != timer.Running {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	expired := e.countdown.Check(now)
	if !e.completed || expired {
		e.renderTimerLocked(now)
	}
	if expired {
		e.stopTickerLocked()
	}
	e.mu.Unlock()

	if expired {
		e.expire()
	}
}

// expire runs once per session, on the Running -> Expired transition.
func (e *Engine) expire() {
	e.log.Info("countdown expired, auto-submitting")
	e.renderer.Notify(Notification{Level: LevelWarning, Message: timeUpMessage})
	_ = e.submit(e.ctx, true)
}

// Next advances one question, or enters the completion screen from the last one.
func (e *Engine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpenLocked(); err != nil {
		return err
	}
	switch {
	case e.completed:
	case e.index < e.store.Total()-1:
		e.index++
	default:
		e.completed = true
	}
	e.movedLocked()
	return nil
}

// Previous steps back one question; from the completion screen it re-enters
// review at the last question. At index 0 it does nothing.
func (e *Engine) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpenLocked(); err != nil {
		return err
	}
	switch {
	case e.completed:
		e.completed = false
		e.index = e.store.Total() - 1
	case e.index > 0:
		e.index--
	default:
		return nil
	}
	e.movedLocked()
	return nil
}

// JumpTo shows question index, leaving the completion screen if needed.
func (e *Engine) JumpTo(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpenLocked(); err != nil {
		return err
	}
	if index < 0 || index >= e.store.Total() {
		return domain.ErrIndexOutOfRange
	}
	e.completed = false
	e.index = index
	e.movedLocked()
	return nil
}

// SetAnswer records value for the current question. MCQ answers must name an
// option letter and are stored uppercase. It never advances the index.
func (e *Engine) SetAnswer(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpenLocked(); err != nil {
		return err
	}
	if e.completed {
		return domain.ErrNotOnQuestion
	}
	q, _ := e.store.At(e.index)
	if q.Kind == domain.KindMCQ {
		opt, ok := questions.OptionIndex(value)
		if !ok || opt >= len(q.Options) {
			return domain.ErrInvalidOption
		}
		value = questions.OptionLetter(opt)
	}
	e.ledger.Set(e.index, value)
	e.renderer.RenderQuestion(e.questionViewLocked())
	e.scheduleSaveLocked()
	return nil
}

// ToggleFlag flips the review flag of the current question and returns it.
func (e *Engine) ToggleFlag() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpenLocked(); err != nil {
		return false, err
	}
	if e.completed {
		return false, domain.ErrNotOnQuestion
	}
	flagged := e.ledger.ToggleFlag(e.index)
	e.renderer.RenderQuestion(e.questionViewLocked())
	e.scheduleSaveLocked()
	return flagged, nil
}

// ShowQuestionList renders the index picker.
func (e *Engine) ShowQuestionList() []ListItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := e.questionListLocked()
	e.renderer.RenderQuestionList(items)
	return items
}

// Submit is the manual submission path; it asks the user to confirm first.
func (e *Engine) Submit(ctx context.Context) error {
	return e.submit(ctx, false)
}

func (e *Engine) submit(ctx context.Context, auto bool) error {
	e.mu.Lock()
	err := e.checkSubmittableForLocked(auto)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if !auto && !e.renderer.Confirm(confirmPrompt) {
		return domain.ErrSubmissionCancelled
	}

	e.mu.Lock()
	if err := e.checkSubmittableForLocked(auto); err != nil {
		e.mu.Unlock()
		return err
	}
	e.submitting = true
	sub := e.submissionLocked()
	e.renderer.RenderNav(e.navLocked())
	e.mu.Unlock()

	_, err = e.submitter.Submit(ctx, sub)
	if err != nil {
		e.mu.Lock()
		e.submitting = false
		runAuto := !auto && e.pendingAuto
		e.pendingAuto = false
		e.renderer.RenderNav(e.navLocked())
		e.mu.Unlock()
		e.log.Warn("submission failed", "auto", auto, "error", err)
		e.renderer.Notify(Notification{Level: LevelError, Message: "Error submitting quiz: " + err.Error()})
		if runAuto {
			e.log.Info("deadline passed during submission, auto-submitting")
			_ = e.submit(e.ctx, true)
		}
		return err
	}

	e.mu.Lock()
	e.submitting = false
	e.pendingAuto = false
	e.submitted = true
	e.countdown.Stop()
	e.stopTickerLocked()
	e.ledger.Clear()
	e.renderer.RenderNav(e.navLocked())
	e.mu.Unlock()

	// Close before Clear so a debounced write racing this path cannot
	// resurrect the snapshot.
	e.persist.Close()
	e.persist.Clear(ctx)

	e.log.Info("quiz submitted", "auto", auto, "answered", len(sub.Answers))
	e.renderer.Notify(Notification{Level: LevelSuccess, Message: successMessage})
	if e.opts.ResultsURL != "" {
		e.renderer.Redirect(e.opts.ResultsURL)
	}
	return nil
}

// Unload forces a final save and cancels every scheduled callback. The
// engine accepts no further input afterwards.
func (e *Engine) Unload(ctx context.Context) {
	e.mu.Lock()
	if e.unloaded {
		e.mu.Unlock()
		return
	}
	e.unloaded = true
	e.stopTickerLocked()
	save := e.started && !e.submitted
	var snap domain.Snapshot
	if save {
		snap = e.snapshotLocked()
	}
	e.mu.Unlock()

	if save {
		e.persist.Save(ctx, snap)
	}
	e.persist.Close()
}

// State reports where the session is.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Index:      e.index,
		Completed:  e.completed,
		Submitting: e.submitting,
		Submitted:  e.submitted,
	}
	if e.countdown != nil {
		st.Timer = e.countdown.State()
	}
	return st
}

// AnswerAt returns the stored answer for index and whether one exists.
func (e *Engine) AnswerAt(index int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Get(index)
}

func (e *Engine) AnsweredCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.AnsweredCount()
}

func (e *Engine) IsFlagged(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.IsFlagged(index)
}

func (e *Engine) Tally() Tally {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tallyLocked()
}

func (e *Engine) checkOpenLocked() error {
	switch {
	case !e.started:
		return ErrNotStarted
	case e.submitted:
		return domain.ErrAlreadySubmitted
	case e.unloaded:
		return ErrUnloaded
	}
	return nil
}

func (e *Engine) checkSubmittableLocked() error {
	switch {
	case !e.started:
		return ErrNotStarted
	case e.submitted:
		return domain.ErrAlreadySubmitted
	case e.submitting:
		return domain.ErrSubmissionInFlight
	}
	return nil
}

// checkSubmittableForLocked is checkSubmittableLocked that also remembers an
// auto-submission refused because a manual one is in flight.
func (e *Engine) checkSubmittableForLocked(auto bool) error {
	err := e.checkSubmittableLocked()
	if auto && errors.Is(err, domain.ErrSubmissionInFlight) {
		e.pendingAuto = true
	}
	return err
}

func (e *Engine) movedLocked() {
	e.renderLocked()
	e.scheduleSaveLocked()
}

func (e *Engine) scheduleSaveLocked() {
	e.persist.ScheduleSave(func() domain.Snapshot {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.snapshotLocked()
	})
}

func (e *Engine) stopTickerLocked() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		QuizID:       e.opts.QuizID,
		CurrentIndex: e.index,
		Completed:    e.completed,
		Answers:      e.ledger.Answers(),
		Flags:        e.ledger.Flags(),
		Deadline:     e.countdown.Deadline(),
	}
}

func (e *Engine) submissionLocked() domain.Submission {
	sub := domain.Submission{
		Answers:        make(map[int]string),
		Flagged:        make(map[int]bool),
		TotalQuestions: e.store.Total(),
	}
	for i, v := range e.ledger.Answers() {
		if e.ledger.IsAnswered(i) {
			sub.Answers[i] = strings.TrimSpace(v)
		}
	}
	for _, i := range e.ledger.Flags() {
		sub.Flagged[i] = true
	}
	return sub
}

func (e *Engine) renderLocked() {
	if e.completed {
		e.renderer.RenderCompletion(e.tallyLocked())
	} else {
		e.renderer.RenderQuestion(e.questionViewLocked())
	}
	e.renderer.RenderNav(e.navLocked())
}

func (e *Engine) renderTimerLocked(now time.Time) {
	remaining := e.countdown.Remaining(now)
	e.renderer.RenderTimer(TimerView{
		Remaining: remaining,
		Text:      timer.Format(remaining),
		Band:      timer.BandFor(remaining),
	})
}

func (e *Engine) questionViewLocked() QuestionView {
	q, _ := e.store.At(e.index)
	answer, _ := e.ledger.Get(e.index)
	answered := e.ledger.IsAnswered(e.index)
	final := e.index == e.store.Total()-1

	view := QuestionView{
		Index:    e.index,
		Number:   e.index + 1,
		Total:    e.store.Total(),
		ID:       q.ID,
		Kind:     q.Kind,
		Prompt:   q.Prompt,
		Answer:   answer,
		Answered: answered,
		Flagged:  e.ledger.IsFlagged(e.index),
		Final:    final,
		Status:   statusUnanswered,
	}
	if answered {
		view.Status = statusAnswered
	}
	if final {
		view.Status += statusFinal
	}
	if q.Kind == domain.KindMCQ {
		view.Instruction = instructionMCQ
		view.Options = make([]OptionView, len(q.Options))
		for i, text := range q.Options {
			letter := questions.OptionLetter(i)
			view.Options[i] = OptionView{Letter: letter, Text: text, Selected: answer == letter}
		}
	} else {
		view.Instruction = instructionShort
	}
	return view
}

func (e *Engine) navLocked() NavView {
	last := e.index == e.store.Total()-1
	nav := NavView{
		PreviousEnabled: e.completed || e.index > 0,
		NextLabel:       labelNext,
		NextAction:      ActionNext,
		SubmitVisible:   e.completed || !last,
		SubmitEnabled:   !e.submitting && !e.submitted,
		FlagVisible:     !e.completed,
	}
	switch {
	case e.completed:
		nav.NextLabel = labelReview
		nav.NextAction = ActionPrevious
	case last:
		nav.NextLabel = labelFinish
	}
	return nav
}

func (e *Engine) tallyLocked() Tally {
	total := e.store.Total()
	answered := e.ledger.AnsweredCount()
	return Tally{
		Answered:   answered,
		Unanswered: total - answered,
		Flagged:    len(e.ledger.Flags()),
		Total:      total,
	}
}

func (e *Engine) questionListLocked() []ListItem {
	items := make([]ListItem, e.store.Total())
	for i := range items {
		items[i] = ListItem{
			Index:    i,
			Number:   i + 1,
			Current:  !e.completed && i == e.index,
			Answered: e.ledger.IsAnswered(i),
			Flagged:  e.ledger.IsFlagged(i),
		}
	}
	return items
}
