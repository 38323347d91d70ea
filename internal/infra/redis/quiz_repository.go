package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quiz-session-engine/internal/domain"
)

// QuizLoader fetches a quiz feed from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizFeed, error)
}

// QuizRepository caches quiz feeds in Redis and falls back to a loader on miss.
// Feeds are stored as: SET quiz:{quizID}:feed {json}
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizFeed, error) {
	if feed, ok := r.cached(ctx, quizID); ok {
		return feed, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if feed, ok := r.cached(ctx, quizID); ok {
			return feed, nil
		}

		feed, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizFeed{}, err
		}

		data, err := json.Marshal(feed)
		if err != nil {
			return domain.QuizFeed{}, fmt.Errorf("encode feed: %w", err)
		}
		// best-effort: a failed cache write only costs a reload
		_ = r.client.Set(ctx, r.feedKey(quizID), data, r.ttlWithJitter()).Err()
		return feed, nil
	})
	if err != nil {
		return domain.QuizFeed{}, err
	}
	return result.(domain.QuizFeed), nil
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.QuizFeed, bool) {
	data, err := r.client.Get(ctx, r.feedKey(quizID)).Bytes()
	if err != nil {
		return domain.QuizFeed{}, false
	}
	var feed domain.QuizFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return domain.QuizFeed{}, false
	}
	return feed, true
}

func (r *QuizRepository) feedKey(quizID string) string {
	return "quiz:" + quizID + ":feed"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
