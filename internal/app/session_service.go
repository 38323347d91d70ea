package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"quiz-session-engine/internal/clock"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
	"quiz-session-engine/internal/persist"
	"quiz-session-engine/internal/questions"
)

// QuizRepository loads quiz feeds (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizFeed, error)
}

// Credentials are what the user's browser would attach to a same-origin
// request: the anti-forgery token and the page's cookies.
type Credentials struct {
	CSRFToken string
	Cookies   []*http.Cookie
}

// SubmitterFactory builds the submission gateway for one quiz, bound to the
// caller's credentials.
type SubmitterFactory func(quizID string, creds Credentials) engine.Submitter

type Options struct {
	// Route scopes snapshot keys by the surface serving the quiz.
	Route string
	// ResultsURL is a template; "{quizId}" is replaced with the quiz id.
	ResultsURL   string
	SaveDelay    time.Duration
	TickInterval time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
}

// SessionService opens quiz sessions and keeps at most one live engine per
// user and quiz.
type SessionService struct {
	quizzes    QuizRepository
	snapshots  persist.Backend
	submitters SubmitterFactory
	opts       Options

	mu     sync.Mutex
	active map[string]*engine.Engine
}

func NewSessionService(quizzes QuizRepository, snapshots persist.Backend, submitters SubmitterFactory, opts Options) *SessionService {
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SessionService{
		quizzes:    quizzes,
		snapshots:  snapshots,
		submitters: submitters,
		opts:       opts,
		active:     make(map[string]*engine.Engine),
	}
}

type OpenRequest struct {
	QuizID      string
	UserID      string
	Credentials Credentials
}

// Session is a started engine plus the snapshot slot it owns.
type Session struct {
	*engine.Engine
	Key string
}

// Open loads the quiz, unloads any previous engine for the same user and quiz
// so its final snapshot lands first, then starts a fresh engine that restores
// from that snapshot. ctx bounds the session lifetime.
func (s *SessionService) Open(ctx context.Context, req OpenRequest, renderer engine.Renderer) (*Session, error) {
	feed, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	store, err := questions.LoadFeed(feed)
	if err != nil {
		return nil, fmt.Errorf("quiz %s: %w", req.QuizID, err)
	}

	key := persist.Key(req.UserID, s.opts.Route, req.QuizID)
	logger := s.opts.Logger.With("user_id", req.UserID)
	adapter := persist.New(s.snapshots, persist.Options{
		Key:    key,
		QuizID: req.QuizID,
		Delay:  s.opts.SaveDelay,
		Clock:  s.opts.Clock,
		Logger: logger,
	})
	eng := engine.New(store, renderer, adapter, s.submitters(req.QuizID, req.Credentials), engine.Options{
		QuizID:       req.QuizID,
		Duration:     feed.Duration(),
		ResultsURL:   ExpandQuizURL(s.opts.ResultsURL, req.QuizID),
		TickInterval: s.opts.TickInterval,
		Clock:        s.opts.Clock,
		Logger:       logger,
	})

	s.mu.Lock()
	prev := s.active[key]
	s.active[key] = eng
	s.mu.Unlock()

	if prev != nil {
		logger.Info("replacing live session", "snapshot_key", key)
		prev.Unload(ctx)
	}
	eng.Start(ctx)
	return &Session{Engine: eng, Key: key}, nil
}

// Close unloads the session and forgets it unless a newer one took its slot.
func (s *SessionService) Close(ctx context.Context, sess *Session) {
	sess.Unload(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[sess.Key] == sess.Engine {
		delete(s.active, sess.Key)
	}
}

// Active reports how many sessions are live.
func (s *SessionService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Shutdown unloads every live session so progress is flushed before exit.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	live := make([]*engine.Engine, 0, len(s.active))
	for key, eng := range s.active {
		live = append(live, eng)
		delete(s.active, key)
	}
	s.mu.Unlock()

	for _, eng := range live {
		eng.Unload(ctx)
	}
}

// ExpandQuizURL substitutes the quiz id into a "{quizId}" URL template.
func ExpandQuizURL(template, quizID string) string {
	return strings.ReplaceAll(template, "{quizId}", url.PathEscape(quizID))
}
