// Package compliance orchestrates the full pipeline: resolve the building,
// fan out to the source adapters, reconcile and score, and cache the
// resulting snapshot. Everything stateful lives behind the cache; a pass
// itself is reproducible from its inputs.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"facade/internal/audit"
	"facade/internal/cache"
	"facade/internal/compliance/metrics"
	"facade/internal/dashboard"
	"facade/internal/domain"
	"facade/internal/reconcile"
	"facade/internal/resolver"
	"facade/internal/sources"
	"facade/pkg/requestcontext"
)

// Resolver maps addresses and building IDs to municipal identities.
type Resolver interface {
	Resolve(ctx context.Context, addr domain.NormalizedAddress) (domain.BuildingIdentity, error)
	ResolveCandidate(ctx context.Context, addr domain.NormalizedAddress, propertyKey string) (domain.BuildingIdentity, error)
	Identity(ctx context.Context, id domain.BuildingID) (domain.BuildingIdentity, error)
	Verify(ctx context.Context, limit int) ([]resolver.Mismatch, error)
}

// Normalizer turns raw address text into the canonical form.
type Normalizer interface {
	Normalize(raw string) (domain.NormalizedAddress, error)
}

// Auditor records operational events. The audit publisher satisfies this.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs aggregation passes and serves snapshots.
type Service struct {
	normalizer Normalizer
	resolver   Resolver
	adapters   []sources.Adapter
	cache      *cache.Cache
	reconciler *reconcile.Engine
	auditor    Auditor
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	clock      func() time.Time
	workers    int
}

// Option configures the Service.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics attaches pass metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithWorkers bounds the portfolio refresh pool.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New constructs the compliance service.
func New(
	normalizer Normalizer,
	res Resolver,
	adapters []sources.Adapter,
	snapshotCache *cache.Cache,
	reconciler *reconcile.Engine,
	auditor Auditor,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		normalizer: normalizer,
		resolver:   res,
		adapters:   adapters,
		cache:      snapshotCache,
		reconciler: reconciler,
		auditor:    auditor,
		logger:     logger,
		tracer:     otel.Tracer("facade/compliance"),
		clock:      time.Now,
		workers:    4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check returns the compliance snapshot for a known building, running an
// aggregation pass if the cached one is missing or expired.
func (s *Service) Check(ctx context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error) {
	identity, err := s.resolver.Identity(ctx, id)
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	return s.cache.GetOrFetch(ctx, id, s.fetchFunc(identity))
}

// CheckAddress resolves raw address text to a building and returns its
// snapshot. Ambiguous matches surface as *domain.AmbiguousMatchError with
// the candidate list; the caller retries with a chosen property key.
func (s *Service) CheckAddress(ctx context.Context, raw string) (domain.ComplianceSnapshot, error) {
	addr, err := s.normalizer.Normalize(raw)
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	identity, err := s.resolver.Resolve(ctx, addr)
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	return s.cache.GetOrFetch(ctx, identity.BuildingID, s.fetchFunc(identity))
}

// CheckAddressCandidate is the disambiguation path: the caller picked one
// of the candidates returned by a previous CheckAddress.
func (s *Service) CheckAddressCandidate(ctx context.Context, raw, propertyKey string) (domain.ComplianceSnapshot, error) {
	addr, err := s.normalizer.Normalize(raw)
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	identity, err := s.resolver.ResolveCandidate(ctx, addr, propertyKey)
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	return s.cache.GetOrFetch(ctx, identity.BuildingID, s.fetchFunc(identity))
}

// Summary computes the portfolio rollup over the given buildings. Missing
// or expired snapshots are refreshed through a bounded worker pool;
// cancellation stops new dispatch while in-flight buildings complete.
func (s *Service) Summary(ctx context.Context, ids []domain.BuildingID) (domain.PortfolioSummary, error) {
	snapshots, err := s.collect(ctx, ids)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}
	return dashboard.Summarize(snapshots, s.clock()), nil
}

// RefreshPortfolio re-runs the aggregation pass for every building,
// bypassing the freshness window, with at most s.workers passes in flight.
// Buildings that cannot be refreshed are skipped with a WARN so one bad
// record does not abort a portfolio-wide warm. Cancellation stops new
// dispatch only: a pass already handed to a worker runs to completion on a
// detached context, so the upstream quota it spent still lands in the cache.
func (s *Service) RefreshPortfolio(ctx context.Context, ids []domain.BuildingID) error {
	passCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := s.ForceRefresh(passCtx, id); err != nil {
				s.logger.WarnContext(passCtx, "portfolio refresh skipped building",
					"building_id", id,
					"error", err,
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// collect fetches snapshots for all buildings with at most s.workers passes
// in flight. Buildings whose every source fails and that have no prior
// snapshot are skipped with a WARN rather than sinking the whole summary.
// As with RefreshPortfolio, dispatched passes complete on a detached
// context; cancellation only gates new dispatch.
func (s *Service) collect(ctx context.Context, ids []domain.BuildingID) ([]domain.ComplianceSnapshot, error) {
	var (
		mu        sync.Mutex
		snapshots []domain.ComplianceSnapshot
	)
	passCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			snap, err := s.Check(passCtx, id)
			if err != nil {
				s.logger.WarnContext(passCtx, "portfolio refresh skipped building",
					"building_id", id,
					"error", err,
				)
				return nil
			}
			mu.Lock()
			snapshots = append(snapshots, snap)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return snapshots, err
	}
	return snapshots, nil
}

// Invalidate drops a building's snapshot so the next read fetches fresh.
func (s *Service) Invalidate(ctx context.Context, id domain.BuildingID) error {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Action:     audit.ActionBuildingInvalidated,
		BuildingID: id,
		Operator:   requestcontext.Operator(ctx),
	})
	return nil
}

// ForceRefresh runs a pass immediately, bypassing the freshness window.
func (s *Service) ForceRefresh(ctx context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error) {
	identity, err := s.resolver.Identity(ctx, id)
	if err != nil {
		return domain.ComplianceSnapshot{}, err
	}
	s.emit(ctx, audit.Event{
		Action:     audit.ActionForceRefreshRequested,
		BuildingID: id,
		Operator:   requestcontext.Operator(ctx),
	})
	return s.cache.ForceRefresh(ctx, id, s.fetchFunc(identity))
}

// VerifyIdentities re-checks up to limit cached identities against the
// property registry and audits the outcome. Mismatches are flagged, never
// auto-evicted; an operator decides what to do with each.
func (s *Service) VerifyIdentities(ctx context.Context, limit int) ([]resolver.Mismatch, error) {
	mismatches, err := s.resolver.Verify(ctx, limit)
	if err != nil {
		return mismatches, err
	}
	s.emit(ctx, audit.Event{
		Action: audit.ActionIdentityVerified,
		Detail: map[string]string{"mismatches": fmt.Sprintf("%d", len(mismatches))},
	})
	for _, m := range mismatches {
		s.emit(ctx, audit.Event{
			Action:     audit.ActionIdentityMismatch,
			BuildingID: m.Identity.BuildingID,
			Detail: map[string]string{
				"cached_property_key":  m.Identity.PropertyKey,
				"current_property_key": m.CurrentPropertyKey,
			},
		})
	}
	return mismatches, nil
}

// fetchFunc builds the cache's fetch callback: one full aggregation pass
// for the identity.
func (s *Service) fetchFunc(identity domain.BuildingIdentity) cache.FetchFunc {
	return func(ctx context.Context) (domain.ComplianceSnapshot, error) {
		return s.runPass(ctx, identity)
	}
}

// runPass fans out to every adapter concurrently, reconciles the results,
// and audits the outcome. Adapter failures are values, not errors, so the
// group never short-circuits; reconciliation decides whether the pass
// produced anything usable.
func (s *Service) runPass(ctx context.Context, identity domain.BuildingIdentity) (domain.ComplianceSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.pass",
		trace.WithAttributes(
			attribute.String("building_id", string(identity.BuildingID)),
			attribute.String("property_key", identity.PropertyKey),
		))
	defer span.End()

	var mu sync.Mutex
	perSource := make(map[domain.SourceSystem]sources.Result, len(s.adapters))

	g, gctx := errgroup.WithContext(ctx)
	for _, adapter := range s.adapters {
		g.Go(func() error {
			fctx, fspan := s.tracer.Start(gctx, "compliance.fetch",
				trace.WithAttributes(attribute.String("source", string(adapter.System()))))
			start := time.Now()
			result := adapter.FetchViolations(fctx, identity)
			s.metrics.ObserveFetch(string(adapter.System()), time.Since(start).Seconds(), string(result.Status))
			fspan.SetAttributes(attribute.String("status", string(result.Status)))
			fspan.End()

			mu.Lock()
			perSource[adapter.System()] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	snapshot, err := s.reconciler.Reconcile(identity.BuildingID, s.clock(), perSource)
	if err != nil {
		span.SetStatus(codes.Error, "all sources failed")
		s.metrics.IncPass("failed")
		s.logger.ErrorContext(ctx, "aggregation pass failed",
			"building_id", identity.BuildingID,
			"error", err,
		)
		s.emit(ctx, audit.Event{
			Action:     audit.ActionRefreshFailed,
			BuildingID: identity.BuildingID,
		})
		return domain.ComplianceSnapshot{}, err
	}

	s.metrics.ObserveScore(snapshot.Score)
	outcome := "ok"
	if snapshot.Degraded() {
		outcome = "degraded"
	}
	s.metrics.IncPass(outcome)
	s.logger.InfoContext(ctx, "aggregation pass complete",
		"building_id", identity.BuildingID,
		"score", snapshot.Score,
		"grade", snapshot.Grade,
		"violations", len(snapshot.Violations),
		"degraded", snapshot.Degraded(),
	)
	s.emit(ctx, audit.Event{
		Action:     audit.ActionSnapshotRefreshed,
		BuildingID: identity.BuildingID,
		Detail: map[string]string{
			"score": fmt.Sprintf("%d", snapshot.Score),
			"grade": string(snapshot.Grade),
		},
	})
	return snapshot, nil
}

// emit audits best-effort. Audit problems are logged, never propagated.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}
