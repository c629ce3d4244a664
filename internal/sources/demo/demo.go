// Package demo serves synthetic registry data for demos and end-to-end
// tests. It implements the same fetcher port as the real HTTP client, so
// the rest of the pipeline cannot tell the difference. Demo wiring is
// gated only by the DemoMode config flag, never inferred from address
// content.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"facade/internal/domain"
	"facade/internal/platform/config"
)

// Fixture endpoints, one per upstream the pipeline talks to.
const (
	RegistryEndpoint   = "demo://registry"
	HousingEndpoint    = "demo://housing"
	PermitsEndpoint    = "demo://permits"
	SanitationEndpoint = "demo://sanitation"
)

// Fixture building identifiers.
const (
	PerryBBL = "1006237501"
	PerryBIN = "1009123"
	GroveBBL = "1005890022"
	GroveBIN = "1008745"
)

// Catalog returns a source catalog wired to the fixture endpoints.
func Catalog() config.SourceCatalog {
	sources := make(map[domain.SourceSystem]config.SourceConfig, 3)
	for sys, endpoint := range map[domain.SourceSystem]string{
		domain.SourceHousing:    HousingEndpoint,
		domain.SourcePermits:    PermitsEndpoint,
		domain.SourceSanitation: SanitationEndpoint,
	} {
		sources[sys] = config.SourceConfig{
			Endpoint: endpoint,
			PageSize: 200,
			MaxRows:  1000,
			Timeout:  config.Duration(10 * time.Second),
		}
	}
	return config.SourceCatalog{
		Sources: sources,
		ZIPBoroughs: map[string]domain.Borough{
			"10014": domain.BoroughManhattan,
		},
	}
}

type row = map[string]string

// Fetcher serves the fixture dataset: a troubled walk-up at 68 Perry
// Street and a clean building at 14 Grove Street.
type Fetcher struct {
	registry   []row
	housing    map[string][]row
	permits    map[string][]row
	sanitation map[string][]row
}

// NewFetcher builds the fixture fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		registry:   registryRows(),
		housing:    housingRows(),
		permits:    permitRows(),
		sanitation: sanitationRows(),
	}
}

// Do routes the request to the fixture table for the endpoint and applies
// Socrata-style $limit/$offset pagination, the same contract the real
// registries expose.
func (f *Fetcher) Do(_ context.Context, endpoint string, query url.Values) ([]byte, error) {
	var rows []row
	switch endpoint {
	case RegistryEndpoint:
		rows = matchRegistry(f.registry, query)
	case HousingEndpoint:
		rows = f.housing[query.Get("bbl")]
	case PermitsEndpoint:
		if bin := query.Get("bin"); bin != "" {
			rows = f.permits[bin]
		} else {
			rows = f.permits[query.Get("bbl")]
		}
	case SanitationEndpoint:
		key := query.Get("violation_location_house") + "|" +
			query.Get("violation_location_street_name") + "|" +
			query.Get("violation_location_borough")
		rows = f.sanitation[key]
	default:
		return nil, fmt.Errorf("demo fetcher: unknown endpoint %q", endpoint)
	}
	return json.Marshal(page(rows, query))
}

func page(rows []row, query url.Values) []row {
	offset, _ := strconv.Atoi(query.Get("$offset"))
	limit, _ := strconv.Atoi(query.Get("$limit"))
	if offset >= len(rows) {
		return []row{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func matchRegistry(rows []row, query url.Values) []row {
	var out []row
	for _, r := range rows {
		if r["housenum"] == query.Get("housenum") &&
			r["streetname"] == query.Get("streetname") &&
			r["borough"] == query.Get("borough") {
			out = append(out, r)
		}
	}
	return out
}

func registryRows() []row {
	return []row{
		{
			"bbl": PerryBBL, "bin": PerryBIN,
			"housenum": "68", "streetname": "PERRY STREET",
			"borough": "MANHATTAN", "unitstotal": "10",
		},
		{
			"bbl": GroveBBL, "bin": GroveBIN,
			"housenum": "14", "streetname": "GROVE STREET",
			"borough": "MANHATTAN", "unitstotal": "6",
		},
	}
}

func housingRows() map[string][]row {
	return map[string][]row{
		PerryBBL: {
			{
				"violationid": "HV-20458811", "class": "B",
				"novdescription":  "SECTION 27-2005 ADM CODE REPAIR THE BROKEN OR DEFECTIVE PLASTERED SURFACES",
				"violationstatus": "OPEN",
				"inspectiondate":  "2025-03-12T00:00:00.000",
				"penalty":         "0", "balancedue": "0",
			},
			{
				"violationid": "HV-19887204", "class": "A",
				"novdescription":  "SECTION 27-2013 ADM CODE PAINT WITH LIGHT COLORED PAINT",
				"violationstatus": "CERTIFIED",
				"inspectiondate":  "2024-11-02T00:00:00.000",
				"penalty":         "0", "balancedue": "0",
			},
		},
	}
}

func permitRows() map[string][]row {
	return map[string][]row{
		PerryBIN: {
			{
				"number": "PB-00341276", "violation_type_code": "FISP",
				"description":        "FAILURE TO FILE FACADE INSPECTION REPORT",
				"violation_category": "RESOLVED",
				"issue_date":         "2023-08-15T00:00:00.000",
				"penalty_imposed":    "1250.00", "amount_paid": "1250.00",
			},
		},
	}
}

func sanitationRows() map[string][]row {
	perry := []row{
		{
			"ticket_number": "ST-90114407", "issuing_agency": "DSNY - ENFORCEMENT AGENTS",
			"charge_1_code": "AS4", "charge_1_code_description": "FAILURE TO STORE RECEPTACLES",
			"hearing_status": "DEFAULTED",
			"violation_date": "2025-01-22T00:00:00.000",
			"penalty_imposed": "300.00", "balance_due": "300.00",
		},
		{
			"ticket_number": "ST-90118832", "issuing_agency": "DEPT. OF SANITATION",
			"charge_1_code": "AS2", "charge_1_code_description": "IMPROPER DISPOSAL",
			"hearing_status": "IN VIOLATION",
			"violation_date": "2025-04-03T00:00:00.000",
			"penalty_imposed": "75.00", "balance_due": "75.00",
		},
		{
			"ticket_number": "ST-90120155", "issuing_agency": "SANITATION RECYCLING",
			"charge_1_code": "R12", "charge_1_code_description": "RECYCLING NOT SOURCE SEPARATED",
			"hearing_status": "IN VIOLATION",
			"violation_date": "2025-05-11T00:00:00.000",
			"penalty_imposed": "75.00", "balance_due": "75.00",
		},
	}
	// Sixteen resolved tickets fill out the history.
	for i := range 16 {
		perry = append(perry, row{
			"ticket_number":             fmt.Sprintf("ST-88%06d", 100200+i*37),
			"issuing_agency":            "DSNY",
			"charge_1_code":             "AS1",
			"charge_1_code_description": "DIRTY SIDEWALK",
			"hearing_status":            "PAID IN FULL",
			"violation_date":            fmt.Sprintf("2024-%02d-08T00:00:00.000", i%12+1),
			"penalty_imposed":           "100.00",
			"balance_due":               "0",
		})
	}
	// Other agencies ticket the same address; the adapter must drop these.
	perry = append(perry,
		row{
			"ticket_number": "ST-77100231", "issuing_agency": "DEPT OF BUILDINGS",
			"charge_1_code": "B02", "charge_1_code_description": "WORK WITHOUT PERMIT",
			"hearing_status": "IN VIOLATION",
			"violation_date": "2025-02-14T00:00:00.000",
			"penalty_imposed": "2500.00", "balance_due": "2500.00",
		},
		row{
			"ticket_number": "ST-77100232", "issuing_agency": "NYPD",
			"charge_1_code": "N01", "charge_1_code_description": "NOISE AFTER HOURS",
			"hearing_status": "DOCKETED",
			"violation_date": "2025-03-01T00:00:00.000",
			"penalty_imposed": "350.00", "balance_due": "350.00",
		},
	)
	return map[string][]row{
		"68|PERRY STREET|MANHATTAN": perry,
	}
}
