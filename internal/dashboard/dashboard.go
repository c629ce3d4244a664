// Package dashboard computes portfolio summaries: pure projections over a
// set of compliance snapshots. Nothing here fetches or persists; callers
// hand in whatever snapshots they have and get a rollup back.
package dashboard

import (
	"sort"
	"time"

	"facade/internal/domain"
)

// criticalScoreThreshold marks the score below which a building is flagged
// critical even without a defaulted fine.
const criticalScoreThreshold = 70

// Summarize rolls the given snapshots into one portfolio view. A building
// is critical when its score is below the threshold or any of its fines has
// gone to default. Critical IDs come back sorted so repeated summaries over
// the same snapshots are identical.
func Summarize(snapshots []domain.ComplianceSnapshot, generatedAt time.Time) domain.PortfolioSummary {
	summary := domain.PortfolioSummary{
		GeneratedAt:    generatedAt,
		TotalBuildings: len(snapshots),
	}

	var scoreSum int
	for _, snap := range snapshots {
		scoreSum += snap.Score
		summary.TotalOutstandingBalance += snap.OutstandingBalance
		if Critical(snap) {
			summary.CriticalBuildingIDs = append(summary.CriticalBuildingIDs, snap.BuildingID)
		}
	}
	if len(snapshots) > 0 {
		summary.AverageScore = float64(scoreSum) / float64(len(snapshots))
	}
	sort.Slice(summary.CriticalBuildingIDs, func(i, j int) bool {
		return summary.CriticalBuildingIDs[i] < summary.CriticalBuildingIDs[j]
	})
	return summary
}

// Critical reports whether a single building needs attention.
func Critical(snap domain.ComplianceSnapshot) bool {
	return snap.Score < criticalScoreThreshold || snap.HasDefaulted()
}
