// Package reconcile merges per-source fetch results into one compliance
// snapshot. Pure domain logic - no I/O, no side effects - so a pass is
// reproducible from its inputs.
package reconcile

import (
	"sort"
	"time"

	"facade/internal/domain"
	"facade/internal/sources"
)

// Scorer computes the deterministic score and grade for a violation set.
type Scorer interface {
	Score(violations []domain.ViolationRecord) (int, domain.Grade)
	OutstandingBalance(violations []domain.ViolationRecord) domain.Cents
}

// Engine builds snapshots from per-source results.
type Engine struct {
	scorer Scorer
}

// New constructs a reconciliation engine.
func New(scorer Scorer) *Engine {
	return &Engine{scorer: scorer}
}

// Reconcile merges all OK and STALE sources into one ordered, deduplicated
// violation sequence and scores it. The per-source status map is recorded
// independently of violation content: an empty violation list with three OK
// sources means a clean building, with a FAILED source it means "could not
// verify". A pass where every source failed returns
// domain.ErrAllSourcesFailed and no snapshot; the cache keeps serving the
// last good one.
func (e *Engine) Reconcile(buildingID domain.BuildingID, now time.Time, perSource map[domain.SourceSystem]sources.Result) (domain.ComplianceSnapshot, error) {
	statuses := make(map[domain.SourceSystem]domain.SourceStatus, len(perSource))
	allFailed := true
	for system, result := range perSource {
		statuses[system] = result.Status
		if result.Status != domain.SourceFailed {
			allFailed = false
		}
	}
	if allFailed {
		return domain.ComplianceSnapshot{}, domain.ErrAllSourcesFailed
	}

	violations := merge(perSource)
	score, grade := e.scorer.Score(violations)

	return domain.ComplianceSnapshot{
		BuildingID:         buildingID,
		FetchedAt:          now,
		PerSourceStatus:    statuses,
		Violations:         violations,
		Score:              score,
		Grade:              grade,
		OutstandingBalance: e.scorer.OutstandingBalance(violations),
	}, nil
}

type dedupKey struct {
	system     domain.SourceSystem
	externalID string
}

// merge concatenates non-failed sources, drops duplicate (source,
// externalID) pairs, and orders the result deterministically regardless of
// adapter completion order: issuedAt descending, ties broken by externalID
// then source.
func merge(perSource map[domain.SourceSystem]sources.Result) []domain.ViolationRecord {
	var out []domain.ViolationRecord
	seen := make(map[dedupKey]struct{})

	// Iterate systems in declaration order so duplicate resolution does not
	// depend on map iteration.
	for _, system := range domain.SourceSystems {
		result, ok := perSource[system]
		if !ok || result.Status == domain.SourceFailed {
			continue
		}
		for _, v := range result.Violations {
			key := dedupKey{system: v.SourceSystem, externalID: v.ExternalID}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		if out[i].ExternalID != out[j].ExternalID {
			return out[i].ExternalID < out[j].ExternalID
		}
		return out[i].SourceSystem < out[j].SourceSystem
	})
	return out
}
