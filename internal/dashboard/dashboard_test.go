package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"facade/internal/domain"
)

var generatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func snap(id domain.BuildingID, score int, balance domain.Cents, defaulted bool) domain.ComplianceSnapshot {
	s := domain.ComplianceSnapshot{
		BuildingID:         id,
		Score:              score,
		OutstandingBalance: balance,
		FetchedAt:          generatedAt.Add(-time.Hour),
	}
	if defaulted {
		s.Violations = append(s.Violations, domain.ViolationRecord{
			SourceSystem: domain.SourceSanitation,
			ExternalID:   "T-1",
			Status:       domain.StatusDefaulted,
		})
	}
	return s
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	summary := Summarize(nil, generatedAt)
	assert.Zero(t, summary.TotalBuildings)
	assert.Zero(t, summary.AverageScore)
	assert.Empty(t, summary.CriticalBuildingIDs)
	assert.Zero(t, summary.TotalOutstandingBalance)
	assert.Equal(t, generatedAt, summary.GeneratedAt)
}

func TestSummarizeAveragesAndBalances(t *testing.T) {
	summary := Summarize([]domain.ComplianceSnapshot{
		snap("b-1", 100, 0, false),
		snap("b-2", 80, 15000, false),
		snap("b-3", 90, 5000, false),
	}, generatedAt)

	assert.Equal(t, 3, summary.TotalBuildings)
	assert.InDelta(t, 90.0, summary.AverageScore, 0.001)
	assert.Equal(t, domain.Cents(20000), summary.TotalOutstandingBalance)
	assert.Empty(t, summary.CriticalBuildingIDs)
}

func TestSummarizeFlagsLowScoreAsCritical(t *testing.T) {
	summary := Summarize([]domain.ComplianceSnapshot{
		snap("b-1", 69, 0, false),
		snap("b-2", 70, 0, false),
	}, generatedAt)

	assert.Equal(t, []domain.BuildingID{"b-1"}, summary.CriticalBuildingIDs)
}

func TestSummarizeFlagsDefaultedAsCriticalRegardlessOfScore(t *testing.T) {
	summary := Summarize([]domain.ComplianceSnapshot{
		snap("b-1", 95, 30000, true),
	}, generatedAt)

	assert.Equal(t, []domain.BuildingID{"b-1"}, summary.CriticalBuildingIDs)
}

func TestSummarizeCriticalIDsSorted(t *testing.T) {
	summary := Summarize([]domain.ComplianceSnapshot{
		snap("b-9", 10, 0, false),
		snap("b-1", 20, 0, false),
		snap("b-5", 30, 0, false),
	}, generatedAt)

	assert.Equal(t, []domain.BuildingID{"b-1", "b-5", "b-9"}, summary.CriticalBuildingIDs)
}

func TestCritical(t *testing.T) {
	assert.False(t, Critical(snap("b-1", 70, 0, false)))
	assert.True(t, Critical(snap("b-1", 69, 0, false)))
	assert.True(t, Critical(snap("b-1", 100, 0, true)))
}
