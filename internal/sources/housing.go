package sources

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"facade/internal/domain"
)

// Config holds one adapter's endpoint and fetch bounds.
type Config struct {
	Endpoint string
	PageSize int
	MaxRows  int
	Timeout  time.Duration
}

// housingStatuses maps the housing registry's vocabulary onto the internal
// enum. The registry closes violations by certification, so CERTIFIED is a
// resolved state here even though no other source uses the word.
var housingStatuses = map[string]domain.ViolationStatus{
	"OPEN":      domain.StatusOpen,
	"ACTIVE":    domain.StatusOpen,
	"CLOSE":     domain.StatusClosed,
	"CLOSED":    domain.StatusClosed,
	"CERTIFIED": domain.StatusClosed,
	"DISMISSED": domain.StatusClosed,
	"DEFERRED":  domain.StatusPending,
}

// housingSeverities maps the hazard class letter to severity. Class I
// (immediately hazardous orders) outranks C.
var housingSeverities = map[string]domain.Severity{
	"A": domain.SeverityLow,
	"B": domain.SeverityMedium,
	"C": domain.SeverityHigh,
	"I": domain.SeverityCritical,
}

// HousingAdapter fetches housing-maintenance violations, keyed by the
// block/lot property key.
type HousingAdapter struct {
	fetcher Fetcher
	cfg     Config
	logger  *slog.Logger
}

// NewHousingAdapter constructs the housing source adapter.
func NewHousingAdapter(fetcher Fetcher, cfg Config, logger *slog.Logger) *HousingAdapter {
	return &HousingAdapter{fetcher: fetcher, cfg: cfg, logger: logger}
}

func (a *HousingAdapter) System() domain.SourceSystem { return domain.SourceHousing }

type housingRow struct {
	ViolationID     string `json:"violationid"`
	Class           string `json:"class"`
	NOVDescription  string `json:"novdescription"`
	ViolationStatus string `json:"violationstatus"`
	InspectionDate  string `json:"inspectiondate"`
	CorrectByDate   string `json:"originalcorrectbydate"`
	Penalty         string `json:"penalty"`
	BalanceDue      string `json:"balancedue"`
}

// FetchViolations translates the housing registry for one building. Any
// failure returns a FAILED result; the error never crosses this boundary.
func (a *HousingAdapter) FetchViolations(ctx context.Context, identity domain.BuildingIdentity) Result {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	query := url.Values{}
	query.Set("bbl", identity.PropertyKey)

	rows, truncated, err := fetchAll[housingRow](ctx, a.fetcher, a.cfg.Endpoint, query, a.cfg.PageSize, a.cfg.MaxRows)
	if err != nil {
		return logFetchFailure(ctx, a.logger, domain.SourceHousing, identity.BuildingID, err)
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

func (a *HousingAdapter) translate(ctx context.Context, row housingRow) domain.ViolationRecord {
	severity, ok := housingSeverities[row.Class]
	if !ok {
		severity = domain.SeverityMedium
	}

	issuedAt, _ := parseTime(row.InspectionDate)
	var dueAt *time.Time
	if t, ok := parseTime(row.CorrectByDate); ok {
		dueAt = &t
	}

	fine := parseCents(row.Penalty)
	balance := clampBalance(ctx, a.logger, domain.SourceHousing, row.ViolationID, fine, parseCents(row.BalanceDue))

	return domain.ViolationRecord{
		SourceSystem: domain.SourceHousing,
		ExternalID:   row.ViolationID,
		Category:     "HOUSING CLASS " + row.Class,
		Description:  row.NOVDescription,
		Severity:     severity,
		Status:       mapStatus(ctx, a.logger, domain.SourceHousing, housingStatuses, row.ViolationStatus),
		IssuedAt:     issuedAt,
		DueAt:        dueAt,
		FineAmount:   fine,
		BalanceDue:   balance,
	}
}
