package resolver

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facade/internal/domain"
	"facade/internal/resolver/store"
)

// fakeRegistry returns a fixed candidate set and counts queries. It
// deliberately returns loose matches (same house number, different street)
// to prove the resolver filters them out.
type fakeRegistry struct {
	candidates []Candidate
	queries    int
	err        error
}

func (f *fakeRegistry) FindBuildings(_ context.Context, _ domain.NormalizedAddress) ([]Candidate, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func addr(house, street string, borough domain.Borough) domain.NormalizedAddress {
	return domain.NormalizedAddress{HouseNumber: house, StreetName: street, Borough: borough}
}

func candidate(bbl, house, street string, borough domain.Borough, units int) Candidate {
	return Candidate{
		PropertyKey: bbl,
		Address:     addr(house, street, borough),
		UnitCount:   units,
	}
}

func newService(reg PropertyRegistry) (*Service, *store.Memory) {
	mem := store.NewMemory()
	logger := slog.New(slog.DiscardHandler)
	svc := New(reg, mem, logger, WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
	return svc, mem
}

func TestResolveExactMatch(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "131", "PERRY STREET", domain.BoroughManhattan, 12),
	}}
	svc, _ := newService(reg)

	identity, err := svc.Resolve(context.Background(), addr("131", "PERRY STREET", domain.BoroughManhattan))
	require.NoError(t, err)
	assert.Equal(t, "1006237501", identity.PropertyKey)
	assert.NotEmpty(t, identity.BuildingID)
}

// Regression test for the over-broad matching defect: a registry response
// that matches on house number alone must never resolve.
func TestResolveRejectsHouseNumberOnlyMatch(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1001530020", "131", "DUANE STREET", domain.BoroughManhattan, 8),
	}}
	svc, _ := newService(reg)

	_, err := svc.Resolve(context.Background(), addr("131", "PERRY STREET", domain.BoroughManhattan))
	var unresolved *domain.UnresolvedAddressError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "PERRY STREET", unresolved.Address.StreetName)
}

func TestResolveRejectsBoroughMismatch(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("3001530020", "131", "PERRY STREET", domain.BoroughBrooklyn, 8),
	}}
	svc, _ := newService(reg)

	_, err := svc.Resolve(context.Background(), addr("131", "PERRY STREET", domain.BoroughManhattan))
	var unresolved *domain.UnresolvedAddressError
	require.ErrorAs(t, err, &unresolved)
}

func TestResolveCachesIndefinitely(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "131", "PERRY STREET", domain.BoroughManhattan, 12),
	}}
	svc, _ := newService(reg)
	a := addr("131", "PERRY STREET", domain.BoroughManhattan)

	first, err := svc.Resolve(context.Background(), a)
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reg.queries, "second resolve must come from cache")
}

func TestResolveAmbiguousSurfacesCandidates(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "10", "GROVE STREET", domain.BoroughManhattan, 12),
		candidate("1006237502", "10", "GROVE STREET", domain.BoroughManhattan, 48),
	}}
	svc, _ := newService(reg)

	_, err := svc.Resolve(context.Background(), addr("10", "GROVE STREET", domain.BoroughManhattan))
	var ambiguous *domain.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	require.Len(t, ambiguous.Candidates, 2)
}

func TestResolveWithUnitsDisambiguates(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "10", "GROVE STREET", domain.BoroughManhattan, 12),
		candidate("1006237502", "10", "GROVE STREET", domain.BoroughManhattan, 48),
	}}
	svc, _ := newService(reg)

	identity, err := svc.ResolveWithUnits(context.Background(), addr("10", "GROVE STREET", domain.BoroughManhattan), 50)
	require.NoError(t, err)
	assert.Equal(t, "1006237502", identity.PropertyKey)
}

func TestResolveWithUnitsTieStaysAmbiguous(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "10", "GROVE STREET", domain.BoroughManhattan, 20),
		candidate("1006237502", "10", "GROVE STREET", domain.BoroughManhattan, 40),
	}}
	svc, _ := newService(reg)

	_, err := svc.ResolveWithUnits(context.Background(), addr("10", "GROVE STREET", domain.BoroughManhattan), 30)
	var ambiguous *domain.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
}

func TestResolveCandidateOverride(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "10", "GROVE STREET", domain.BoroughManhattan, 12),
		candidate("1006237502", "10", "GROVE STREET", domain.BoroughManhattan, 48),
	}}
	svc, _ := newService(reg)
	a := addr("10", "GROVE STREET", domain.BoroughManhattan)

	identity, err := svc.ResolveCandidate(context.Background(), a, "1006237501")
	require.NoError(t, err)
	assert.Equal(t, "1006237501", identity.PropertyKey)

	// Override result is cached like any other resolution.
	again, err := svc.Resolve(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, identity.BuildingID, again.BuildingID)
}

func TestForgetForcesRequery(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "131", "PERRY STREET", domain.BoroughManhattan, 12),
	}}
	svc, _ := newService(reg)
	a := addr("131", "PERRY STREET", domain.BoroughManhattan)

	_, err := svc.Resolve(context.Background(), a)
	require.NoError(t, err)
	require.NoError(t, svc.Forget(context.Background(), a))

	_, err = svc.Resolve(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.queries)
}

func TestVerifyFlagsMismatch(t *testing.T) {
	reg := &fakeRegistry{candidates: []Candidate{
		candidate("1006237501", "131", "PERRY STREET", domain.BoroughManhattan, 12),
	}}
	svc, mem := newService(reg)

	_, err := svc.Resolve(context.Background(), addr("131", "PERRY STREET", domain.BoroughManhattan))
	require.NoError(t, err)

	// No drift yet.
	mismatches, err := svc.Verify(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// Registry now reports a different lot for the same address.
	reg.candidates = []Candidate{
		candidate("1006239999", "131", "PERRY STREET", domain.BoroughManhattan, 12),
	}
	mismatches, err = svc.Verify(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "1006237501", mismatches[0].Identity.PropertyKey)
	assert.Equal(t, "1006239999", mismatches[0].CurrentPropertyKey)

	// Verify never evicts on its own.
	cached, err := mem.Get(context.Background(), addr("131", "PERRY STREET", domain.BoroughManhattan).Key())
	require.NoError(t, err)
	assert.Equal(t, "1006237501", cached.PropertyKey)
}
