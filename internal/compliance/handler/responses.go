package handler

import (
	"time"

	"facade/internal/domain"
)

// ViolationResponse is one violation in API shape.
type ViolationResponse struct {
	SourceSystem string     `json:"sourceSystem"`
	ExternalID   string     `json:"externalId"`
	Category     string     `json:"category,omitempty"`
	Description  string     `json:"description,omitempty"`
	Severity     string     `json:"severity"`
	Status       string     `json:"status"`
	IssuedAt     time.Time  `json:"issuedAt"`
	DueAt        *time.Time `json:"dueAt,omitempty"`
	FineAmount   float64    `json:"fineAmount"`
	BalanceDue   float64    `json:"balanceDue"`
}

// SnapshotResponse is the API shape of a compliance snapshot. DataAsOf and
// Stale make partial or outdated data visible instead of silently served.
type SnapshotResponse struct {
	BuildingID         string              `json:"buildingId"`
	Score              int                 `json:"score"`
	Grade              string              `json:"grade"`
	OutstandingBalance float64             `json:"outstandingBalance"`
	Violations         []ViolationResponse `json:"violations"`
	PerSourceStatus    map[string]string   `json:"perSourceStatus"`
	DataAsOf           time.Time           `json:"dataAsOf"`
	Stale              bool                `json:"stale"`
}

// FromSnapshot maps a domain snapshot to the API shape.
func FromSnapshot(s domain.ComplianceSnapshot) SnapshotResponse {
	violations := make([]ViolationResponse, 0, len(s.Violations))
	for _, v := range s.Violations {
		violations = append(violations, ViolationResponse{
			SourceSystem: string(v.SourceSystem),
			ExternalID:   v.ExternalID,
			Category:     v.Category,
			Description:  v.Description,
			Severity:     string(v.Severity),
			Status:       string(v.Status),
			IssuedAt:     v.IssuedAt,
			DueAt:        v.DueAt,
			FineAmount:   v.FineAmount.Dollars(),
			BalanceDue:   v.BalanceDue.Dollars(),
		})
	}
	statuses := make(map[string]string, len(s.PerSourceStatus))
	for system, status := range s.PerSourceStatus {
		statuses[string(system)] = string(status)
	}
	return SnapshotResponse{
		BuildingID:         string(s.BuildingID),
		Score:              s.Score,
		Grade:              string(s.Grade),
		OutstandingBalance: s.OutstandingBalance.Dollars(),
		Violations:         violations,
		PerSourceStatus:    statuses,
		DataAsOf:           s.FetchedAt,
		Stale:              s.Stale,
	}
}

// CandidateResponse is one possible match for an ambiguous address.
type CandidateResponse struct {
	PropertyKey  string `json:"propertyKey"`
	StructureKey string `json:"structureKey,omitempty"`
}

// AmbiguousResponse is returned when an address matches several buildings.
// The caller retries with one of the property keys.
type AmbiguousResponse struct {
	Error      string              `json:"error"`
	Address    string              `json:"address"`
	Candidates []CandidateResponse `json:"candidates"`
}

// SummaryResponse is the API shape of a portfolio rollup.
type SummaryResponse struct {
	GeneratedAt             time.Time `json:"generatedAt"`
	TotalBuildings          int       `json:"totalBuildings"`
	AverageScore            float64   `json:"averageScore"`
	CriticalBuildingIDs     []string  `json:"criticalBuildingIds"`
	TotalOutstandingBalance float64   `json:"totalOutstandingBalance"`
}

// FromSummary maps a domain summary to the API shape.
func FromSummary(s domain.PortfolioSummary) SummaryResponse {
	critical := make([]string, 0, len(s.CriticalBuildingIDs))
	for _, id := range s.CriticalBuildingIDs {
		critical = append(critical, string(id))
	}
	return SummaryResponse{
		GeneratedAt:             s.GeneratedAt,
		TotalBuildings:          s.TotalBuildings,
		AverageScore:            s.AverageScore,
		CriticalBuildingIDs:     critical,
		TotalOutstandingBalance: s.TotalOutstandingBalance.Dollars(),
	}
}
