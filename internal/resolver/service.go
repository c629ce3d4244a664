// Package resolver maps normalized addresses to municipal building
// identifiers and caches the mapping. Matching is exact on the full
// compound key (house number, street name, borough); matching on house
// number alone silently returned wrong buildings in the past and is
// deliberately impossible here.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"facade/internal/domain"
)

// Service resolves and caches building identities.
type Service struct {
	registry PropertyRegistry
	store    IdentityStore
	logger   *slog.Logger
	clock    func() time.Time
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

// New constructs a resolver service.
func New(registry PropertyRegistry, store IdentityStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		store:    store,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the building identity for a normalized address, querying
// the property registry on a cache miss. Multiple candidates surface as
// *domain.AmbiguousMatchError; the caller disambiguates with
// ResolveWithUnits or ResolveCandidate.
func (s *Service) Resolve(ctx context.Context, addr domain.NormalizedAddress) (domain.BuildingIdentity, error) {
	if cached, err := s.store.Get(ctx, addr.Key()); err == nil {
		return cached, nil
	}

	candidates, err := s.exactMatches(ctx, addr)
	if err != nil {
		return domain.BuildingIdentity{}, err
	}

	switch len(candidates) {
	case 0:
		return domain.BuildingIdentity{}, &domain.UnresolvedAddressError{Address: addr}
	case 1:
		return s.adopt(ctx, addr, candidates[0])
	default:
		return domain.BuildingIdentity{}, &domain.AmbiguousMatchError{
			Address:    addr,
			Candidates: candidateIdentities(addr, candidates),
		}
	}
}

// ResolveWithUnits disambiguates a multi-lot complex by declared unit
// count. The candidate whose unit count is uniquely closest wins; a tie is
// still ambiguous.
func (s *Service) ResolveWithUnits(ctx context.Context, addr domain.NormalizedAddress, declaredUnits int) (domain.BuildingIdentity, error) {
	if cached, err := s.store.Get(ctx, addr.Key()); err == nil {
		return cached, nil
	}

	candidates, err := s.exactMatches(ctx, addr)
	if err != nil {
		return domain.BuildingIdentity{}, err
	}
	if len(candidates) == 0 {
		return domain.BuildingIdentity{}, &domain.UnresolvedAddressError{Address: addr}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return unitDistance(candidates[i], declaredUnits) < unitDistance(candidates[j], declaredUnits)
	})
	if len(candidates) > 1 && unitDistance(candidates[0], declaredUnits) == unitDistance(candidates[1], declaredUnits) {
		return domain.BuildingIdentity{}, &domain.AmbiguousMatchError{
			Address:    addr,
			Candidates: candidateIdentities(addr, candidates),
		}
	}
	return s.adopt(ctx, addr, candidates[0])
}

// ResolveCandidate is the explicit override path: the operator names the
// property key to adopt for an address.
func (s *Service) ResolveCandidate(ctx context.Context, addr domain.NormalizedAddress, propertyKey string) (domain.BuildingIdentity, error) {
	candidates, err := s.exactMatches(ctx, addr)
	if err != nil {
		return domain.BuildingIdentity{}, err
	}
	for _, c := range candidates {
		if c.PropertyKey == propertyKey {
			return s.adopt(ctx, addr, c)
		}
	}
	return domain.BuildingIdentity{}, &domain.UnresolvedAddressError{Address: addr}
}

// Forget drops the cached mapping for an address so the next Resolve hits
// the registry again. Recovery path for a cached key pointing at the wrong
// building.
func (s *Service) Forget(ctx context.Context, addr domain.NormalizedAddress) error {
	return s.store.Delete(ctx, addr.Key())
}

// Identity returns the cached identity for a building ID.
func (s *Service) Identity(ctx context.Context, id domain.BuildingID) (domain.BuildingIdentity, error) {
	return s.store.ByID(ctx, id)
}

// Mismatch reports a cached identity whose registry record no longer
// matches, found by the verification sweep.
type Mismatch struct {
	Identity           domain.BuildingIdentity
	CurrentPropertyKey string
}

// Verify re-checks up to limit cached identities against the registry and
// returns the ones whose property key no longer matches. It never evicts;
// an operator confirms via forceRefresh before anything changes.
func (s *Service) Verify(ctx context.Context, limit int) ([]Mismatch, error) {
	identities, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	var mismatches []Mismatch
	for _, identity := range identities {
		candidates, err := s.exactMatches(ctx, identity.Address)
		if err != nil {
			return mismatches, fmt.Errorf("verify %s: %w", identity.BuildingID, err)
		}
		if containsPropertyKey(candidates, identity.PropertyKey) {
			continue
		}
		current := ""
		if len(candidates) == 1 {
			current = candidates[0].PropertyKey
		}
		s.logger.WarnContext(ctx, "cached identity no longer matches registry",
			"building_id", identity.BuildingID,
			"property_key", identity.PropertyKey,
			"current_property_key", current,
		)
		mismatches = append(mismatches, Mismatch{Identity: identity, CurrentPropertyKey: current})
	}
	return mismatches, nil
}

// exactMatches queries the registry and keeps only candidates whose house
// number, street name, and borough all match. All three components must
// match; this is the fix for the over-broad house-number-only matching
// defect.
func (s *Service) exactMatches(ctx context.Context, addr domain.NormalizedAddress) ([]Candidate, error) {
	found, err := s.registry.FindBuildings(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("query property registry: %w", err)
	}
	exact := found[:0:0]
	for _, c := range found {
		if c.Address.HouseNumber == addr.HouseNumber &&
			c.Address.StreetName == addr.StreetName &&
			c.Address.Borough == addr.Borough {
			exact = append(exact, c)
		}
	}
	return exact, nil
}

func (s *Service) adopt(ctx context.Context, addr domain.NormalizedAddress, c Candidate) (domain.BuildingIdentity, error) {
	identity := domain.BuildingIdentity{
		BuildingID:   domain.BuildingID(uuid.NewString()),
		PropertyKey:  c.PropertyKey,
		StructureKey: c.StructureKey,
		Address:      addr,
		ResolvedAt:   s.clock(),
	}
	if err := s.store.Put(ctx, identity); err != nil {
		return domain.BuildingIdentity{}, fmt.Errorf("cache identity: %w", err)
	}
	s.logger.InfoContext(ctx, "resolved building identity",
		"building_id", identity.BuildingID,
		"property_key", identity.PropertyKey,
		"address_key", addr.Key(),
	)
	return identity, nil
}

func candidateIdentities(addr domain.NormalizedAddress, candidates []Candidate) []domain.BuildingIdentity {
	out := make([]domain.BuildingIdentity, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.BuildingIdentity{
			PropertyKey:  c.PropertyKey,
			StructureKey: c.StructureKey,
			Address:      addr,
		})
	}
	return out
}

func containsPropertyKey(candidates []Candidate, key string) bool {
	for _, c := range candidates {
		if c.PropertyKey == key {
			return true
		}
	}
	return false
}

func unitDistance(c Candidate, declared int) int {
	d := c.UnitCount - declared
	if d < 0 {
		return -d
	}
	return d
}
