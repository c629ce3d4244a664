// Package sources translates the three upstream registries into the unified
// violation record shape. Each adapter owns one upstream's quirks: its
// identifier scheme, its status vocabulary, and its pagination. Nothing
// upstream-specific leaks past this package.
package sources

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Fetcher

import (
	"context"
	"log/slog"
	"net/url"

	"facade/internal/domain"
)

// Fetcher is the injected HTTP capability. Adapters do not open sockets
// themselves; they accept a (endpoint, query) -> raw JSON collaborator.
type Fetcher interface {
	Do(ctx context.Context, endpoint string, query url.Values) ([]byte, error)
}

// Result is one source's contribution to a pass. Failure is a value here,
// not an error: a failed fetch yields StatusFailed with zero violations and
// never aborts sibling adapters.
type Result struct {
	Violations []domain.ViolationRecord
	Status     domain.SourceStatus
}

// Adapter fetches and translates one upstream registry.
type Adapter interface {
	System() domain.SourceSystem
	FetchViolations(ctx context.Context, identity domain.BuildingIdentity) Result
}

func failed() Result {
	return Result{Status: domain.SourceFailed}
}

// logFetchFailure folds a fetch error into a FAILED result. The error is
// wrapped as a SourceFetchError so log pipelines can key on the source.
func logFetchFailure(ctx context.Context, logger *slog.Logger, system domain.SourceSystem, id domain.BuildingID, err error) Result {
	logger.WarnContext(ctx, "source fetch failed",
		"source", system,
		"building_id", id,
		"error", &domain.SourceFetchError{Source: system, Err: err},
	)
	return failed()
}
