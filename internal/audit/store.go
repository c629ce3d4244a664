package audit

import (
	"context"
	"sync"

	"facade/internal/domain"
)

// Store is an append-only event sink with per-building retrieval.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByBuilding(ctx context.Context, id domain.BuildingID) ([]Event, error)
}

// MemoryStore keeps events in memory, in append order.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore constructs an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByBuilding(_ context.Context, id domain.BuildingID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.BuildingID == id {
			out = append(out, e)
		}
	}
	return out, nil
}
