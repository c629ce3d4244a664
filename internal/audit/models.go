// Package audit records operational events around the snapshot lifecycle:
// refreshes, failures, admin invalidations, and identity verification
// results. Events are append-only and transport-agnostic so stores and
// sinks can fan out.
package audit

import (
	"time"

	"facade/internal/domain"
)

// Actions emitted by the compliance service.
const (
	ActionSnapshotRefreshed     = "snapshot_refreshed"
	ActionRefreshFailed         = "refresh_failed"
	ActionBuildingInvalidated   = "building_invalidated"
	ActionForceRefreshRequested = "force_refresh_requested"
	ActionIdentityVerified      = "identity_verified"
	ActionIdentityMismatch      = "identity_mismatch"
)

// Event captures one operational action against a building.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Action     string            `json:"action"`
	BuildingID domain.BuildingID `json:"buildingId,omitempty"`
	Operator   string            `json:"operator,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}
