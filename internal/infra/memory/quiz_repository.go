package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-session-engine/internal/domain"
)

// QuizLoader fetches a quiz feed from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizFeed, error)
}

// QuizRepository caches feeds with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedFeed
}

type cachedFeed struct {
	feed      domain.QuizFeed
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedFeed),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizFeed, error) {
	if feed, ok := r.cached(quizID); ok {
		return feed, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if feed, ok := r.cached(quizID); ok {
			return feed, nil
		}

		feed, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizFeed{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedFeed{
			feed:      feed,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return feed, nil
	})
	if err != nil {
		return domain.QuizFeed{}, err
	}
	return result.(domain.QuizFeed), nil
}

func (r *QuizRepository) cached(quizID string) (domain.QuizFeed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizFeed{}, false
	}
	return entry.feed, true
}

// StaticQuizLoader is a loader backed by an in-memory map (tests, demos, the
// built-in sample quiz).
type StaticQuizLoader struct {
	feeds map[string]domain.QuizFeed
}

func NewStaticQuizLoader(feeds map[string]domain.QuizFeed) *StaticQuizLoader {
	return &StaticQuizLoader{feeds: feeds}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.QuizFeed, error) {
	if feed, ok := l.feeds[quizID]; ok {
		feed.ID = quizID
		return feed, nil
	}
	return domain.QuizFeed{}, domain.ErrQuizNotFound
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
