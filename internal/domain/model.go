// Package domain holds the core model shared by every module: normalized
// addresses, building identities, the unified violation record all source
// adapters translate into, and the snapshot/summary shapes exposed to
// collaborators. Keep this package free of I/O and third-party types so
// stores and transports can depend on it without dragging anything else in.
package domain

import (
	"fmt"
	"time"
)

// Borough is one of the five NYC boroughs.
type Borough string

const (
	BoroughManhattan    Borough = "MANHATTAN"
	BoroughBronx        Borough = "BRONX"
	BoroughBrooklyn     Borough = "BROOKLYN"
	BoroughQueens       Borough = "QUEENS"
	BoroughStatenIsland Borough = "STATEN ISLAND"
)

// Boroughs lists all valid boroughs, in BBL code order.
var Boroughs = []Borough{
	BoroughManhattan,
	BoroughBronx,
	BoroughBrooklyn,
	BoroughQueens,
	BoroughStatenIsland,
}

// NormalizedAddress is the canonical, matchable form of a postal address.
// HouseNumber and StreetName are non-empty for any address that passed
// normalization.
type NormalizedAddress struct {
	HouseNumber string  `json:"houseNumber"`
	StreetName  string  `json:"streetName"`
	Borough     Borough `json:"borough"`
	ZIPCode     string  `json:"zipCode,omitempty"`
}

// Key returns the canonical cache key for an address. Normalization is
// deterministic, so equal addresses always produce equal keys.
func (a NormalizedAddress) Key() string {
	return fmt.Sprintf("%s|%s|%s", a.HouseNumber, a.StreetName, a.Borough)
}

// BuildingID identifies a building internally. Minted once by the resolver
// and stable for the life of the identity mapping.
type BuildingID string

// BuildingIdentity maps a normalized address to the municipal identifiers
// used to query upstream registries. PropertyKey is the borough-block-lot
// key; StructureKey is the permit-system building key and may be absent for
// lots without a registered structure.
type BuildingIdentity struct {
	BuildingID   BuildingID        `json:"buildingId"`
	PropertyKey  string            `json:"propertyKey"`
	StructureKey string            `json:"structureKey,omitempty"`
	Address      NormalizedAddress `json:"address"`
	ResolvedAt   time.Time         `json:"resolvedAt"`
}

// SourceSystem names an upstream registry.
type SourceSystem string

const (
	SourceHousing    SourceSystem = "HOUSING"
	SourcePermits    SourceSystem = "PERMITS"
	SourceSanitation SourceSystem = "SANITATION"
)

// SourceSystems lists every registry an aggregation pass queries.
var SourceSystems = []SourceSystem{SourceHousing, SourcePermits, SourceSanitation}

// Severity ranks how serious a violation is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ViolationStatus is the internal status vocabulary. Every adapter owns an
// explicit mapping from its upstream's wording into these four values.
type ViolationStatus string

const (
	StatusOpen      ViolationStatus = "OPEN"
	StatusPending   ViolationStatus = "PENDING"
	StatusClosed    ViolationStatus = "CLOSED"
	StatusDefaulted ViolationStatus = "DEFAULTED"
)

// SourceStatus records how a single source fared during one pass.
type SourceStatus string

const (
	SourceOK     SourceStatus = "OK"
	SourceStale  SourceStatus = "STALE"
	SourceFailed SourceStatus = "FAILED"
)

// Cents is a money amount in integer cents. Upstream fine amounts arrive as
// decimal strings; keeping them integral keeps rollups exact.
type Cents int64

// Dollars renders the amount for logs and API responses.
func (c Cents) Dollars() float64 { return float64(c) / 100 }

// ViolationRecord is the unified shape all source adapters translate into.
// Records are immutable: a later fetch produces a new record, never a
// mutation of an old one. BalanceDue never exceeds FineAmount; adapters
// clamp and log upstream rows that violate this.
type ViolationRecord struct {
	SourceSystem SourceSystem    `json:"sourceSystem"`
	ExternalID   string          `json:"externalId"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Severity     Severity        `json:"severity"`
	Status       ViolationStatus `json:"status"`
	IssuedAt     time.Time       `json:"issuedAt"`
	DueAt        *time.Time      `json:"dueAt,omitempty"`
	FineAmount   Cents           `json:"fineAmount"`
	BalanceDue   Cents           `json:"balanceDue"`
}

// Grade is the letter band derived from a score.
type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeD      Grade = "D"
	GradeF      Grade = "F"
)

// ComplianceSnapshot is the immutable result of one reconciliation pass for
// a building. A new pass supersedes the previous snapshot; nothing mutates
// an existing one. Stale is set when the snapshot is being served past its
// freshness window because a newer pass could not complete.
type ComplianceSnapshot struct {
	BuildingID         BuildingID                    `json:"buildingId"`
	FetchedAt          time.Time                     `json:"fetchedAt"`
	PerSourceStatus    map[SourceSystem]SourceStatus `json:"perSourceStatus"`
	Violations         []ViolationRecord             `json:"violations"`
	Score              int                           `json:"score"`
	Grade              Grade                         `json:"grade"`
	OutstandingBalance Cents                         `json:"outstandingBalance"`
	Stale              bool                          `json:"stale"`
}

// Degraded reports whether any source failed or returned truncated data
// during the pass that produced this snapshot.
func (s ComplianceSnapshot) Degraded() bool {
	for _, st := range s.PerSourceStatus {
		if st != SourceOK {
			return true
		}
	}
	return false
}

// HasDefaulted reports whether any violation in the snapshot is DEFAULTED.
// Checked explicitly by the dashboard: a single defaulted fine flags a
// building critical regardless of its score.
func (s ComplianceSnapshot) HasDefaulted() bool {
	for _, v := range s.Violations {
		if v.Status == StatusDefaulted {
			return true
		}
	}
	return false
}

// PortfolioSummary is a projection over the current snapshots of a set of
// buildings. It is recomputed on demand and never persisted as
// authoritative.
type PortfolioSummary struct {
	GeneratedAt             time.Time    `json:"generatedAt"`
	TotalBuildings          int          `json:"totalBuildings"`
	AverageScore            float64      `json:"averageScore"`
	CriticalBuildingIDs     []BuildingID `json:"criticalBuildingIds"`
	TotalOutstandingBalance Cents        `json:"totalOutstandingBalance"`
}
