package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"facade/internal/domain"
)

// Fetcher is the injected HTTP capability. The resolver never opens sockets
// itself.
type Fetcher interface {
	Do(ctx context.Context, endpoint string, query url.Values) ([]byte, error)
}

// HTTPRegistry queries a Socrata-style property registry endpoint. Rows
// carry borough-block-lot and building identifiers plus the situs address.
type HTTPRegistry struct {
	fetcher  Fetcher
	endpoint string
}

// NewHTTPRegistry constructs a registry client for the given endpoint.
func NewHTTPRegistry(fetcher Fetcher, endpoint string) *HTTPRegistry {
	return &HTTPRegistry{fetcher: fetcher, endpoint: endpoint}
}

// registryRow mirrors the upstream payload. Everything arrives as strings.
type registryRow struct {
	BBL         string `json:"bbl"`
	BIN         string `json:"bin"`
	HouseNumber string `json:"housenum"`
	StreetName  string `json:"streetname"`
	Borough     string `json:"borough"`
	UnitsTotal  string `json:"unitstotal"`
}

// FindBuildings queries by the full compound key. The query already narrows
// by all three components; the resolver re-checks the results anyway.
func (r *HTTPRegistry) FindBuildings(ctx context.Context, addr domain.NormalizedAddress) ([]Candidate, error) {
	query := url.Values{}
	query.Set("housenum", addr.HouseNumber)
	query.Set("streetname", addr.StreetName)
	query.Set("borough", string(addr.Borough))

	raw, err := r.fetcher.Do(ctx, r.endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("property registry request: %w", err)
	}

	var rows []registryRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode property registry payload: %w", err)
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		units, _ := strconv.Atoi(row.UnitsTotal)
		candidates = append(candidates, Candidate{
			PropertyKey:  row.BBL,
			StructureKey: row.BIN,
			Address: domain.NormalizedAddress{
				HouseNumber: row.HouseNumber,
				StreetName:  row.StreetName,
				Borough:     domain.Borough(row.Borough),
				ZIPCode:     addr.ZIPCode,
			},
			UnitCount: units,
		})
	}
	return candidates, nil
}
