package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-session-engine/internal/domain"
)

func TestSnapshotStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	if _, err := store.Get(ctx, "k"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	payload := []byte(`{"currentIndex":1}`)
	if err := store.Put(ctx, "k", payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	payload[0] = 'X'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"currentIndex":1}` {
		t.Fatalf("stored bytes aliased caller buffer: %s", got)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected snapshot removed")
	}
}
