package persist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quiz-session-engine/internal/clock"
	"quiz-session-engine/internal/domain"
)

// Backend is durable key/value storage for snapshots (memory, Redis, Postgres).
// Get returns domain.ErrSnapshotNotFound for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

const (
	DefaultDelay        = 500 * time.Millisecond
	defaultWriteTimeout = 3 * time.Second
)

// Key namespaces a snapshot by storage owner, route and quiz. A route alone is
// not unique: two quizzes served from the same path must not share state.
func Key(scope, route, quizID string) string {
	return "quiz-session:" + scope + ":" + route + ":" + quizID
}

type Options struct {
	Key          string
	QuizID       string
	Delay        time.Duration
	WriteTimeout time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Adapter saves and restores one quiz instance's snapshot. Storage failures
// are logged and swallowed; callers never see them.
type Adapter struct {
	backend  Backend
	key      string
	quizID   string
	timeout  time.Duration
	clock    clock.Clock
	log      *slog.Logger
	debounce *clock.Debouncer

	mu     sync.Mutex
	closed bool
}

func New(backend Backend, opts Options) *Adapter {
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{
		backend:  backend,
		key:      opts.Key,
		quizID:   opts.QuizID,
		timeout:  opts.WriteTimeout,
		clock:    opts.Clock,
		log:      opts.Logger.With("snapshot_key", opts.Key),
		debounce: clock.NewDebouncer(opts.Clock, opts.Delay),
	}
}

func (a *Adapter) Key() string { return a.key }

// Save writes snap immediately and supersedes any pending debounced write.
func (a *Adapter) Save(ctx context.Context, snap domain.Snapshot) {
	a.debounce.Cancel()
	a.write(ctx, snap)
}

// ScheduleSave writes after the quiet period. source is evaluated when the
// write fires, so the stored snapshot reflects the latest state.
func (a *Adapter) ScheduleSave(source func() domain.Snapshot) {
	a.debounce.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.write(ctx, source())
	})
}

// Pending reports whether a debounced write is waiting to fire.
func (a *Adapter) Pending() bool { return a.debounce.Pending() }

func (a *Adapter) write(ctx context.Context, snap domain.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	snap.QuizID = a.quizID
	snap.SavedAt = a.clock.Now()
	data, err := json.Marshal(snap)
	if err != nil {
		a.log.Warn("encode snapshot", "error", err)
		return
	}
	if err := a.backend.Put(ctx, a.key, data); err != nil {
		a.log.Warn("save snapshot", "error", err)
	}
}

// Restore returns the stored snapshot or nil when it is missing, unreadable
// or belongs to another quiz.
func (a *Adapter) Restore(ctx context.Context) *domain.Snapshot {
	data, err := a.backend.Get(ctx, a.key)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			a.log.Warn("restore snapshot", "error", err)
		}
		return nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		a.log.Warn("discarding corrupt snapshot", "error", err)
		return nil
	}
	if snap.QuizID != a.quizID || snap.Deadline.UnixMilli() <= 0 {
		a.log.Warn("discarding foreign snapshot", "snapshot_quiz", snap.QuizID)
		return nil
	}
	return &snap
}

// Clear deletes the stored snapshot.
func (a *Adapter) Clear(ctx context.Context) {
	if err := a.backend.Delete(ctx, a.key); err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		a.log.Warn("clear snapshot", "error", err)
	}
}

// Close cancels any pending write; every later save is a no-op.
func (a *Adapter) Close() {
	a.debounce.Close()
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}
