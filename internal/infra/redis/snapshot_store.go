package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-session-engine/internal/domain"
)

// SnapshotStore is a Redis-backed persist.Backend. Every write refreshes the
// TTL so abandoned sessions age out on their own.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSnapshotNotFound
	}
	return data, err
}

func (s *SnapshotStore) Put(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
