package sources

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"facade/internal/domain"
)

// permitStatuses maps the buildings-department vocabulary. RESOLVED is this
// source's word for a cured violation; nothing else uses it.
var permitStatuses = map[string]domain.ViolationStatus{
	"ACTIVE":           domain.StatusOpen,
	"OPEN":             domain.StatusOpen,
	"RESOLVED":         domain.StatusClosed,
	"DISMISSED":        domain.StatusClosed,
	"CLOSED":           domain.StatusClosed,
	"PENDING":          domain.StatusPending,
	"UNDER REVIEW":     domain.StatusPending,
	"DEFAULT":          domain.StatusDefaulted,
	"DEFAULTED":        domain.StatusDefaulted,
	"FAILED TO COMPLY": domain.StatusDefaulted,
}

// permitSeverities maps violation type codes. Stop-work and vacate orders
// are the serious end of this registry.
var permitSeverities = map[string]domain.Severity{
	"SWO":  domain.SeverityCritical, // stop work order
	"VACA": domain.SeverityCritical, // vacate order
	"UB":   domain.SeverityHigh,     // unsafe building
	"ES":   domain.SeverityHigh,     // elevator safety
	"FISP": domain.SeverityMedium,   // facade inspection
	"LL":   domain.SeverityMedium,   // local law
	"AEUH": domain.SeverityLow,      // administrative
}

// PermitsAdapter fetches construction-code violations, keyed by the
// permit-system structure key when present, falling back to the block/lot
// key for lots without a registered structure.
type PermitsAdapter struct {
	fetcher Fetcher
	cfg     Config
	logger  *slog.Logger
}

// NewPermitsAdapter constructs the permits source adapter.
func NewPermitsAdapter(fetcher Fetcher, cfg Config, logger *slog.Logger) *PermitsAdapter {
	return &PermitsAdapter{fetcher: fetcher, cfg: cfg, logger: logger}
}

func (a *PermitsAdapter) System() domain.SourceSystem { return domain.SourcePermits }

type permitRow struct {
	ViolationNumber string `json:"number"`
	TypeCode        string `json:"violation_type_code"`
	Description     string `json:"description"`
	Status          string `json:"violation_category"`
	IssueDate       string `json:"issue_date"`
	DispositionDate string `json:"disposition_date"`
	PenaltyImposed  string `json:"penalty_imposed"`
	AmountPaid      string `json:"amount_paid"`
}

// FetchViolations translates the permits registry for one building.
func (a *PermitsAdapter) FetchViolations(ctx context.Context, identity domain.BuildingIdentity) Result {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	query := url.Values{}
	if identity.StructureKey != "" {
		query.Set("bin", identity.StructureKey)
	} else {
		query.Set("bbl", identity.PropertyKey)
	}

	rows, truncated, err := fetchAll[permitRow](ctx, a.fetcher, a.cfg.Endpoint, query, a.cfg.PageSize, a.cfg.MaxRows)
	if err != nil {
		return logFetchFailure(ctx, a.logger, domain.SourcePermits, identity.BuildingID, err)
	}

	violations := make([]domain.ViolationRecord, 0, len(rows))
	for _, row := range rows {
		violations = append(violations, a.translate(ctx, row))
	}

	status := domain.SourceOK
	if truncated {
		status = domain.SourceStale
	}
	return Result{Violations: violations, Status: status}
}

func (a *PermitsAdapter) translate(ctx context.Context, row permitRow) domain.ViolationRecord {
	severity, ok := permitSeverities[row.TypeCode]
	if !ok {
		severity = domain.SeverityMedium
	}

	issuedAt, _ := parseTime(row.IssueDate)
	var dueAt *time.Time
	if t, ok := parseTime(row.DispositionDate); ok {
		dueAt = &t
	}

	fine := parseCents(row.PenaltyImposed)
	balance := fine - parseCents(row.AmountPaid)
	if balance < 0 {
		balance = 0
	}
	balance = clampBalance(ctx, a.logger, domain.SourcePermits, row.ViolationNumber, fine, balance)

	return domain.ViolationRecord{
		SourceSystem: domain.SourcePermits,
		ExternalID:   row.ViolationNumber,
		Category:     "PERMITS " + row.TypeCode,
		Description:  row.Description,
		Severity:     severity,
		Status:       mapStatus(ctx, a.logger, domain.SourcePermits, permitStatuses, row.Status),
		IssuedAt:     issuedAt,
		DueAt:        dueAt,
		FineAmount:   fine,
		BalanceDue:   balance,
	}
}
