package sources

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"facade/internal/domain"
)

// socrataTime is the floating timestamp format used by the open-data
// endpoints.
const socrataTime = "2006-01-02T15:04:05.000"

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{socrataTime, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseCents converts an upstream decimal string ("300.00", "$1,050.5")
// into integer cents. Unparseable or negative amounts come back as 0.
func parseCents(s string) domain.Cents {
	s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return domain.Cents(f*100 + 0.5)
}

// mapStatus translates one upstream status word through an adapter's
// vocabulary table. Unmapped values default to PENDING - never silently
// dropped - and are logged for manual review.
func mapStatus(ctx context.Context, logger *slog.Logger, system domain.SourceSystem, table map[string]domain.ViolationStatus, upstream string) domain.ViolationStatus {
	key := strings.ToUpper(strings.TrimSpace(upstream))
	if status, ok := table[key]; ok {
		return status
	}
	logger.WarnContext(ctx, "unmapped upstream status",
		"source", system,
		"upstream_status", upstream,
	)
	return domain.StatusPending
}

// clampBalance enforces balanceDue <= fineAmount on upstream rows that
// report otherwise.
func clampBalance(ctx context.Context, logger *slog.Logger, system domain.SourceSystem, externalID string, fine, balance domain.Cents) domain.Cents {
	if balance <= fine {
		return balance
	}
	logger.WarnContext(ctx, "balance exceeds fine, clamping",
		"source", system,
		"external_id", externalID,
		"fine_cents", int64(fine),
		"balance_cents", int64(balance),
	)
	return fine
}
