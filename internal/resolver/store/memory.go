// Package store provides identity store implementations: in-memory for
// tests and single-node runs, postgres for durability across restarts.
package store

import (
	"context"
	"sort"
	"sync"

	"facade/internal/domain"
)

// Memory is a mutex-guarded in-memory identity store.
type Memory struct {
	mu    sync.RWMutex
	byKey map[string]domain.BuildingIdentity
	byID  map[domain.BuildingID]string
}

// NewMemory constructs an empty in-memory identity store.
func NewMemory() *Memory {
	return &Memory{
		byKey: make(map[string]domain.BuildingIdentity),
		byID:  make(map[domain.BuildingID]string),
	}
}

func (m *Memory) Get(_ context.Context, addressKey string) (domain.BuildingIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.byKey[addressKey]
	if !ok {
		return domain.BuildingIdentity{}, domain.ErrIdentityNotFound
	}
	return identity, nil
}

func (m *Memory) ByID(_ context.Context, id domain.BuildingID) (domain.BuildingIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.byID[id]
	if !ok {
		return domain.BuildingIdentity{}, domain.ErrIdentityNotFound
	}
	return m.byKey[key], nil
}

func (m *Memory) Put(_ context.Context, identity domain.BuildingIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[identity.Address.Key()] = identity
	m.byID[identity.BuildingID] = identity.Address.Key()
	return nil
}

func (m *Memory) Delete(_ context.Context, addressKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity, ok := m.byKey[addressKey]; ok {
		delete(m.byID, identity.BuildingID)
		delete(m.byKey, addressKey)
	}
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]domain.BuildingIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.BuildingIdentity, 0, len(m.byKey))
	for _, identity := range m.byKey {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ResolvedAt.Before(out[j].ResolvedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
