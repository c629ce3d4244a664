package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the aggregation pipeline. Parsing and resolution
// failures are fatal to a single request and returned synchronously; fetch
// failures are isolated per source and only surface as staleness.
var (
	// ErrAllSourcesFailed means a pass produced no fresh snapshot. Callers
	// degrade to the last known good snapshot rather than failing hard.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrSnapshotNotFound means no snapshot is cached for the building.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrIdentityNotFound means no cached identity exists for an address key.
	ErrIdentityNotFound = errors.New("building identity not found")
)

// NormalizationError reports a raw address that could not be parsed into a
// matchable key. Not retryable: retrying won't change a malformed input.
type NormalizationError struct {
	Raw    string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize address %q: %s", e.Raw, e.Reason)
}

// AmbiguousBoroughError reports an address with no explicit borough token
// and a ZIP code absent from the lookup table. The caller must supply the
// borough explicitly.
type AmbiguousBoroughError struct {
	Raw string
	ZIP string
}

func (e *AmbiguousBoroughError) Error() string {
	if e.ZIP == "" {
		return fmt.Sprintf("normalize address %q: no borough token and no zip code", e.Raw)
	}
	return fmt.Sprintf("normalize address %q: zip %s not in borough table", e.Raw, e.ZIP)
}

// UnresolvedAddressError reports that no building matched the normalized
// address. Carries the normalized form so an operator can correct it.
type UnresolvedAddressError struct {
	Address NormalizedAddress
}

func (e *UnresolvedAddressError) Error() string {
	return fmt.Sprintf("no building matches %s %s, %s",
		e.Address.HouseNumber, e.Address.StreetName, e.Address.Borough)
}

// AmbiguousMatchError reports multiple candidate buildings for one address,
// ranked best-first. The resolver never silently picks the first candidate;
// the caller disambiguates by secondary signal or explicit override.
type AmbiguousMatchError struct {
	Address    NormalizedAddress
	Candidates []BuildingIdentity
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d candidate buildings match %s %s, %s",
		len(e.Candidates), e.Address.HouseNumber, e.Address.StreetName, e.Address.Borough)
}

// SourceFetchError records a single source's failure during a pass. It never
// crosses the adapter boundary as a returned error; adapters fold it into a
// FAILED result and the next scheduled refresh retries.
type SourceFetchError struct {
	Source SourceSystem
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }
