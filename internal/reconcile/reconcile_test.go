package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facade/internal/domain"
	"facade/internal/scoring"
	"facade/internal/sources"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func record(system domain.SourceSystem, id string, issued time.Time, status domain.ViolationStatus) domain.ViolationRecord {
	return domain.ViolationRecord{
		SourceSystem: system,
		ExternalID:   id,
		Severity:     domain.SeverityMedium,
		Status:       status,
		IssuedAt:     issued,
	}
}

func ok(records ...domain.ViolationRecord) sources.Result {
	return sources.Result{Violations: records, Status: domain.SourceOK}
}

func TestReconcileMergesAndOrders(t *testing.T) {
	e := New(scoring.New())

	perSource := map[domain.SourceSystem]sources.Result{
		domain.SourceHousing: ok(
			record(domain.SourceHousing, "H-1", now.Add(-48*time.Hour), domain.StatusOpen),
		),
		domain.SourcePermits: ok(
			record(domain.SourcePermits, "P-1", now.Add(-2*time.Hour), domain.StatusOpen),
		),
		domain.SourceSanitation: ok(
			record(domain.SourceSanitation, "T-1", now.Add(-24*time.Hour), domain.StatusClosed),
		),
	}

	snap, err := e.Reconcile("b-1", now, perSource)
	require.NoError(t, err)

	require.Len(t, snap.Violations, 3)
	assert.Equal(t, "P-1", snap.Violations[0].ExternalID)
	assert.Equal(t, "T-1", snap.Violations[1].ExternalID)
	assert.Equal(t, "H-1", snap.Violations[2].ExternalID)
	assert.Equal(t, now, snap.FetchedAt)
	assert.Equal(t, domain.BuildingID("b-1"), snap.BuildingID)
}

func TestReconcileDeterministicOrderOnTies(t *testing.T) {
	e := New(scoring.New())
	issued := now.Add(-24 * time.Hour)

	perSource := map[domain.SourceSystem]sources.Result{
		domain.SourceHousing: ok(
			record(domain.SourceHousing, "B", issued, domain.StatusOpen),
			record(domain.SourceHousing, "A", issued, domain.StatusOpen),
		),
		domain.SourcePermits:    ok(record(domain.SourcePermits, "A", issued, domain.StatusOpen)),
		domain.SourceSanitation: ok(),
	}

	snap, err := e.Reconcile("b-1", now, perSource)
	require.NoError(t, err)
	require.Len(t, snap.Violations, 3)
	assert.Equal(t, "A", snap.Violations[0].ExternalID)
	assert.Equal(t, domain.SourceHousing, snap.Violations[0].SourceSystem)
	assert.Equal(t, "A", snap.Violations[1].ExternalID)
	assert.Equal(t, domain.SourcePermits, snap.Violations[1].SourceSystem)
	assert.Equal(t, "B", snap.Violations[2].ExternalID)
}

func TestReconcileDeduplicates(t *testing.T) {
	e := New(scoring.New())
	dup := record(domain.SourceSanitation, "T-9", now.Add(-time.Hour), domain.StatusOpen)

	// The same source queried twice within one pass must not double-count.
	perSource := map[domain.SourceSystem]sources.Result{
		domain.SourceHousing:    ok(),
		domain.SourcePermits:    ok(),
		domain.SourceSanitation: ok(dup, dup),
	}

	snap, err := e.Reconcile("b-1", now, perSource)
	require.NoError(t, err)
	assert.Len(t, snap.Violations, 1)
}

func TestReconcilePartialFailureKeepsSurvivors(t *testing.T) {
	e := New(scoring.New())

	perSource := map[domain.SourceSystem]sources.Result{
		domain.SourceHousing: ok(
			record(domain.SourceHousing, "H-1", now.Add(-time.Hour), domain.StatusOpen),
		),
		domain.SourcePermits: ok(
			record(domain.SourcePermits, "P-1", now.Add(-2*time.Hour), domain.StatusOpen),
		),
		domain.SourceSanitation: {Status: domain.SourceFailed},
	}

	snap, err := e.Reconcile("b-1", now, perSource)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceOK, snap.PerSourceStatus[domain.SourceHousing])
	assert.Equal(t, domain.SourceOK, snap.PerSourceStatus[domain.SourcePermits])
	assert.Equal(t, domain.SourceFailed, snap.PerSourceStatus[domain.SourceSanitation])
	assert.Len(t, snap.Violations, 2, "surviving sources still present and scored")
	assert.Less(t, snap.Score, 100)
	assert.True(t, snap.Degraded())
}

func TestReconcileStaleSourceStillCounts(t *testing.T) {
	e := New(scoring.New())

	perSource := map[domain.SourceSystem]sources.Result{
		domain.SourceHousing: {
			Violations: []domain.ViolationRecord{
				record(domain.SourceHousing, "H-1", now.Add(-time.Hour), domain.StatusOpen),
			},
			Status: domain.SourceStale,
		},
		domain.SourcePermits:    ok(),
		domain.SourceSanitation: ok(),
	}

	snap, err := e.Reconcile("b-1", now, perSource)
	require.NoError(t, err)
	assert.Len(t, snap.Violations, 1)
	assert.Equal(t, domain.SourceStale, snap.PerSourceStatus[domain.SourceHousing])
}

func TestReconcileAllFailedProducesNoSnapshot(t *testing.T) {
	e := New(scoring.New())

	perSource := map[domain.SourceSystem]sources.Result{
		domain.SourceHousing:    {Status: domain.SourceFailed},
		domain.SourcePermits:    {Status: domain.SourceFailed},
		domain.SourceSanitation: {Status: domain.SourceFailed},
	}

	_, err := e.Reconcile("b-1", now, perSource)
	require.ErrorIs(t, err, domain.ErrAllSourcesFailed)
}

func TestReconcileCleanBuilding(t *testing.T) {
	e := New(scoring.New())

	perSource := map[domain.SourceSystem]sources.Result{
		domain.SourceHousing:    ok(),
		domain.SourcePermits:    ok(),
		domain.SourceSanitation: ok(),
	}

	snap, err := e.Reconcile("b-1", now, perSource)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Score)
	assert.Equal(t, domain.GradeAPlus, snap.Grade)
	assert.Zero(t, snap.OutstandingBalance)
	assert.False(t, snap.Degraded())
}
