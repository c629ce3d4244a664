package resolver

import (
	"context"

	"facade/internal/domain"
)

// Candidate is one building returned by the property registry for an
// address query, before an internal identity exists for it.
type Candidate struct {
	PropertyKey  string
	StructureKey string
	Address      domain.NormalizedAddress
	UnitCount    int
}

// PropertyRegistry queries the external block/lot registry. Implementations
// may return loose matches; the resolver re-checks the full compound key
// before accepting anything.
type PropertyRegistry interface {
	FindBuildings(ctx context.Context, addr domain.NormalizedAddress) ([]Candidate, error)
}

// IdentityStore persists address-key to identity mappings. Identities are
// effectively permanent; there is no TTL.
type IdentityStore interface {
	// Get returns the identity cached under the normalized-address key, or
	// domain.ErrIdentityNotFound.
	Get(ctx context.Context, addressKey string) (domain.BuildingIdentity, error)
	// ByID returns the identity for a building ID, or domain.ErrIdentityNotFound.
	ByID(ctx context.Context, id domain.BuildingID) (domain.BuildingIdentity, error)
	// Put stores an identity under its address key, replacing any previous
	// mapping (manual override path).
	Put(ctx context.Context, identity domain.BuildingIdentity) error
	// Delete removes a cached mapping so the next Resolve re-queries the
	// registry.
	Delete(ctx context.Context, addressKey string) error
	// List returns up to limit cached identities, oldest resolution first.
	// Used by the verification sweep.
	List(ctx context.Context, limit int) ([]domain.BuildingIdentity, error)
}
