// Package cache is the aggregation cache: the only mutable shared state in
// the pipeline. It holds the most recent snapshot per building, coalesces
// concurrent fetches for the same building into one upstream pass, and
// serves the last good snapshot when a refresh cannot complete.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"facade/internal/cache/metrics"
	"facade/internal/domain"
)

// SnapshotStore persists the latest snapshot per building. Implementations
// retain entries well past the freshness window so stale fallback works.
type SnapshotStore interface {
	// Get returns the stored snapshot or domain.ErrSnapshotNotFound.
	Get(ctx context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error)
	Put(ctx context.Context, snapshot domain.ComplianceSnapshot) error
	Delete(ctx context.Context, id domain.BuildingID) error
}

// FetchFunc runs one full aggregation pass for a building.
type FetchFunc func(ctx context.Context) (domain.ComplianceSnapshot, error)

// Cache implements getOrFetch with per-building request coalescing.
// Distinct buildings proceed fully in parallel; concurrent callers for one
// building share a single in-flight fetch.
type Cache struct {
	store           SnapshotStore
	ttl             time.Duration
	staleRevalidate bool
	logger          *slog.Logger
	metrics         *metrics.Metrics
	clock           func() time.Time
	group           singleflight.Group
}

// Option configures the Cache.
type Option func(*Cache)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithStaleRevalidate makes expired reads serve the last snapshot while a
// background refresh runs, instead of blocking the caller.
func WithStaleRevalidate() Option {
	return func(c *Cache) { c.staleRevalidate = true }
}

// WithMetrics attaches cache metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New constructs the aggregation cache.
func New(store SnapshotStore, ttl time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the building's snapshot, fetching if none is cached or
// the cached one is past the freshness window. Concurrent callers for the
// same building while a fetch is in flight share that single fetch; this is
// what protects the rate-limited upstream registries.
func (c *Cache) GetOrFetch(ctx context.Context, id domain.BuildingID, fetch FetchFunc) (domain.ComplianceSnapshot, error) {
	snapshot, err := c.store.Get(ctx, id)
	switch {
	case err == nil && c.fresh(snapshot):
		c.metrics.IncRequest("hit")
		return snapshot, nil

	case err == nil:
		// Expired but present: refresh, falling back to the stale copy if
		// the pass cannot complete.
		if c.staleRevalidate {
			c.metrics.IncRequest("stale_hit")
			c.refreshBackground(ctx, id, fetch)
			snapshot.Stale = true
			return snapshot, nil
		}
		fresh, ferr := c.refresh(ctx, id, fetch)
		if ferr != nil {
			if errors.Is(ferr, domain.ErrAllSourcesFailed) {
				c.metrics.IncRequest("stale_fallback")
				snapshot.Stale = true
				return snapshot, nil
			}
			return domain.ComplianceSnapshot{}, ferr
		}
		c.metrics.IncRequest("refresh")
		return fresh, nil

	case errors.Is(err, domain.ErrSnapshotNotFound):
		c.metrics.IncRequest("miss")
		return c.refresh(ctx, id, fetch)

	default:
		return domain.ComplianceSnapshot{}, fmt.Errorf("read snapshot store: %w", err)
	}
}

// ForceRefresh bypasses the freshness window but still coalesces with any
// in-flight fetch for the building.
func (c *Cache) ForceRefresh(ctx context.Context, id domain.BuildingID, fetch FetchFunc) (domain.ComplianceSnapshot, error) {
	c.metrics.IncRequest("force_refresh")
	return c.refresh(ctx, id, fetch)
}

// Invalidate drops the cached snapshot so the next read fetches fresh.
func (c *Cache) Invalidate(ctx context.Context, id domain.BuildingID) error {
	c.group.Forget(string(id))
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("invalidate %s: %w", id, err)
	}
	c.metrics.IncRequest("invalidate")
	return nil
}

// Peek returns whatever is cached without triggering a fetch, marking it
// stale if past the freshness window. It answers "what do we currently
// believe" for diagnostics; reads that need fresh data go through
// GetOrFetch.
func (c *Cache) Peek(ctx context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error) {
	snapshot, err := c.store.Get(ctx, id)
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	if !c.fresh(snapshot) {
		snapshot.Stale = true
	}
	return snapshot, nil
}

func (c *Cache) fresh(s domain.ComplianceSnapshot) bool {
	return c.clock().Sub(s.FetchedAt) < c.ttl
}

func (c *Cache) refresh(ctx context.Context, id domain.BuildingID, fetch FetchFunc) (domain.ComplianceSnapshot, error) {
	v, err, shared := c.group.Do(string(id), func() (any, error) {
		snapshot, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if perr := c.store.Put(ctx, snapshot); perr != nil {
			// The pass succeeded; serve it even if persistence lagged.
			c.logger.WarnContext(ctx, "snapshot store write failed",
				"building_id", id,
				"error", perr,
			)
		}
		return snapshot, nil
	})
	if shared {
		c.metrics.IncRequest("coalesced")
	}
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	return v.(domain.ComplianceSnapshot), nil
}

// refreshBackground runs the refresh detached from the caller's
// cancellation: serving stale data must not be undone by the caller
// hanging up early.
func (c *Cache) refreshBackground(ctx context.Context, id domain.BuildingID, fetch FetchFunc) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := c.refresh(bg, id, fetch); err != nil {
			c.logger.WarnContext(bg, "background refresh failed",
				"building_id", id,
				"error", err,
			)
		}
	}()
}
