package cli

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quiz-session-engine/internal/infra/memory"
	redisstore "quiz-session-engine/internal/infra/redis"
	"quiz-session-engine/internal/questions"
)

func TestSnapshotBackendSelection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	backend, err := snapshotBackend("", client, nil, time.Hour)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	if _, ok := backend.(*redisstore.SnapshotStore); !ok {
		t.Fatalf("expected redis store when redis is configured, got %T", backend)
	}

	backend, err = snapshotBackend("", nil, nil, time.Hour)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	if _, ok := backend.(*memory.SnapshotStore); !ok {
		t.Fatalf("expected memory store by default, got %T", backend)
	}

	if _, err := snapshotBackend("postgres", nil, nil, time.Hour); err == nil {
		t.Fatalf("expected error for postgres without a pool")
	}
}

func TestSampleQuizzesLoad(t *testing.T) {
	for id, feed := range sampleQuizzes() {
		store, err := questions.LoadFeed(feed)
		if err != nil {
			t.Fatalf("sample quiz %s: %v", id, err)
		}
		if store.Total() == 0 {
			t.Fatalf("sample quiz %s has no questions", id)
		}
	}
}
