// Package store provides snapshot store implementations: in-memory for
// tests and single-node runs, redis for durability across restarts.
package store

import (
	"context"
	"sync"

	"facade/internal/domain"
)

// Memory is a mutex-guarded in-memory snapshot store. Entries live until
// explicitly deleted; freshness is the cache's concern, retention is not a
// problem at one snapshot per building.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[domain.BuildingID]domain.ComplianceSnapshot
}

// NewMemory constructs an empty in-memory snapshot store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[domain.BuildingID]domain.ComplianceSnapshot)}
}

func (m *Memory) Get(_ context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.snapshots[id]
	if !ok {
		return domain.ComplianceSnapshot{}, domain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (m *Memory) Put(_ context.Context, snapshot domain.ComplianceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.BuildingID] = snapshot
	return nil
}

func (m *Memory) Delete(_ context.Context, id domain.BuildingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, id)
	return nil
}
