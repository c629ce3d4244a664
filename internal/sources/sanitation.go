package sources

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"facade/internal/domain"
)

// sanitationAgencies is the full enumerated set of textual variants the
// enforcement registry uses for the sanitation bureau. This is an
// allow-list matched exactly after trimming and uppercasing. A prefix or
// substring heuristic misses variants (false negatives) or claims other
// agencies' tickets (false positives), so neither is acceptable here.
var sanitationAgencies = map[string]struct{}{
	"DEPT. OF SANITATION":           {},
	"DEPARTMENT OF SANITATION":      {},
	"SANITATION DEPT":               {},
	"DSNY":                          {},
	"DSNY - ENFORCEMENT AGENTS":     {},
	"DOS - ENFORCEMENT AGENTS":      {},
	"DOS - SANITATION ENFORCEMENT":  {},
	"SANITATION ENFORCEMENT AGENTS": {},
	"DSNY SANITATION ENFORCEMENT":   {},
	"SANITATION OTHERS":             {},
	"SANITATION RECYCLING":          {},
}

// sanitationStatuses maps hearing dispositions. PAID IN FULL is this
// registry's word for resolved; DEFAULTED means the respondent never
// answered and the penalty stands.
var sanitationStatuses = map[string]domain.ViolationStatus{
	"PAID IN FULL":      domain.StatusClosed,
	"DISMISSED":         domain.StatusClosed,
	"WRITTEN OFF":       domain.StatusClosed,
	"IN VIOLATION":      domain.StatusOpen,
	"DOCKETED":          domain.StatusOpen,
	"HEARING SCHEDULED": domain.StatusPending,
	"ADJOURNED":         domain.StatusPending,
	"PENDING":           domain.StatusPending,
	"DEFAULT":           domain.StatusDefaulted,
	"DEFAULTED":         domain.StatusDefaulted,
}

// SanitationAdapter fetches enforcement hearings and keeps only the
// sanitation bureau's tickets. The enforcement registry is shared by many
// agencies and keyed loosely by address, which makes this the most
// defensive of the three adapters.
type SanitationAdapter struct {
	fetcher Fetcher
	cfg     Config
	logger  *slog.Logger
}

// NewSanitationAdapter constructs the sanitation source adapter.
func NewSanitationAdapter(fetcher Fetcher, cfg Config, logger *slog.Logger) *SanitationAdapter {
	return &SanitationAdapter{fetcher: fetcher, cfg: cfg, logger: logger}
}

func (a *SanitationAdapter) System() domain.SourceSystem { return domain.SourceSanitation }

type sanitationRow struct {
	TicketNumber   string `json:"ticket_number"`
	IssuingAgency  string `json:"issuing_agency"`
	ChargeCode     string `json:"charge_1_code"`
	ChargeText     string `json:"charge_1_code_description"`
	HearingStatus  string `json:"hearing_status"`
	ViolationDate  string `json:"violation_date"`
	HearingDate    string `json:"hearing_date"`
	PenaltyImposed string `json:"penalty_imposed"`
	BalanceDue     string `json:"balance_due"`
}

// FetchViolations translates the enforcement registry for one building,
// keeping only rows issued by a known sanitation agency variant.
func (a *SanitationAdapter) FetchViolations(ctx context.Context, identity domain.BuildingIdentity) Result {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	query := url.Values{}
	query.Set("violation_location_house", identity.Address.HouseNumber)
	query.Set("violation_location_street_name", identity.Address.StreetName)
	query.Set("violation_location_borough", string(identity.Address.Borough))

	rows, truncated, err := fetchAll[sanitationRow](ctx, a.fetcher, a.cfg.Endpoint, query, a.cfg.PageSize, a.cfg.MaxRows)
	if err != nil {
		return logFetchFailure(ctx, a.logger, domain.SourceSanitation, identity.BuildingID, err)
	}

	violations := make([]domain.ViolationRecord, 0, len(rows))
	for _, row := range rows {
		agency := strings.ToUpper(strings.TrimSpace(row.IssuingAgency))
		if _, ok := sanitationAgencies[agency]; !ok {
			continue
		}
		violations = append(violations, a.translate(ctx, row))
	}

	status := domain.SourceOK
	if truncated {
		status = domain.SourceStale
	}
	return Result{Violations: violations, Status: status}
}

func (a *SanitationAdapter) translate(ctx context.Context, row sanitationRow) domain.ViolationRecord {
	issuedAt, _ := parseTime(row.ViolationDate)
	var dueAt *time.Time
	if t, ok := parseTime(row.HearingDate); ok {
		dueAt = &t
	}

	fine := parseCents(row.PenaltyImposed)
	balance := clampBalance(ctx, a.logger, domain.SourceSanitation, row.TicketNumber, fine, parseCents(row.BalanceDue))

	return domain.ViolationRecord{
		SourceSystem: domain.SourceSanitation,
		ExternalID:   row.TicketNumber,
		Category:     "SANITATION " + row.ChargeCode,
		Description:  row.ChargeText,
		Severity:     sanitationSeverity(fine),
		Status:       mapStatus(ctx, a.logger, domain.SourceSanitation, sanitationStatuses, row.HearingStatus),
		IssuedAt:     issuedAt,
		DueAt:        dueAt,
		FineAmount:   fine,
		BalanceDue:   balance,
	}
}

// sanitationSeverity tiers by imposed penalty; the enforcement registry
// carries no hazard class of its own.
func sanitationSeverity(fine domain.Cents) domain.Severity {
	switch {
	case fine >= 100_000: // $1,000+
		return domain.SeverityCritical
	case fine >= 30_000: // $300+
		return domain.SeverityHigh
	case fine >= 10_000: // $100+
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
