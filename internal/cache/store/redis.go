package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"facade/internal/domain"
)

// Redis persists snapshots in Redis as JSON under a per-building key. The
// retention TTL only bounds storage; it is deliberately much longer than
// the cache freshness window so stale fallback has something to serve.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedis constructs a Redis-backed snapshot store.
func NewRedis(client *redis.Client, retention time.Duration) *Redis {
	return &Redis{client: client, retention: retention}
}

func key(id domain.BuildingID) string {
	return "facade:snapshot:" + string(id)
}

func (r *Redis) Get(ctx context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error) {
	raw, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ComplianceSnapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.ComplianceSnapshot{}, fmt.Errorf("redis get snapshot: %w", err)
	}
	var snapshot domain.ComplianceSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.ComplianceSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *Redis) Put(ctx context.Context, snapshot domain.ComplianceSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, key(snapshot.BuildingID), raw, r.retention).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id domain.BuildingID) error {
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete snapshot: %w", err)
	}
	return nil
}
