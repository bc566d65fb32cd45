package pending

import (
	"context"
	"sync"

	"hookrelay/pkg/models"
)

// MemoryStore is a process-local pending queue, for tests and for running
// without Redis. Contents do not survive a restart.
type MemoryStore struct {
	mu    sync.Mutex
	cap   int
	items []models.PendingItem
}

func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{cap: capacity}
}

func (s *MemoryStore) Append(_ context.Context, item models.PendingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	if s.cap > 0 && len(s.items) > s.cap {
		s.items = append([]models.PendingItem(nil), s.items[len(s.items)-s.cap:]...)
	}
	return nil
}

func (s *MemoryStore) Drain(_ context.Context) ([]models.PendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items
	s.items = nil
	return items, nil
}

func (s *MemoryStore) Requeue(_ context.Context, items []models.PendingItem) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]models.PendingItem, 0, len(items)+len(s.items))
	merged = append(merged, items...)
	merged = append(merged, s.items...)
	if s.cap > 0 && len(merged) > s.cap {
		merged = merged[len(merged)-s.cap:]
	}
	s.items = merged
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.items)), nil
}
