package memory

import (
	"context"
	"sync"

	"quiz-session-engine/internal/domain"
)

// SnapshotStore is an in-memory persist.Backend.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string][]byte),
	}
}

func (s *SnapshotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *SnapshotStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[key] = append([]byte(nil), data...)
	return nil
}

func (s *SnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, key)
	return nil
}

// Len reports how many snapshots are stored.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
