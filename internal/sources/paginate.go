package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// fetchAll pages through a Socrata-style endpoint with $limit/$offset until
// the upstream returns a short page or maxRows is reached. The second
// return value reports truncation: a building with more rows than maxRows
// gets a STALE result, never an OK one, so scoring can discount confidence.
func fetchAll[T any](ctx context.Context, f Fetcher, endpoint string, base url.Values, pageSize, maxRows int) ([]T, bool, error) {
	var rows []T
	for offset := 0; offset < maxRows; offset += pageSize {
		limit := pageSize
		if remaining := maxRows - offset; remaining < limit {
			limit = remaining
		}

		query := url.Values{}
		for k, vs := range base {
			query[k] = vs
		}
		query.Set("$limit", strconv.Itoa(limit))
		query.Set("$offset", strconv.Itoa(offset))

		raw, err := f.Do(ctx, endpoint, query)
		if err != nil {
			return nil, false, fmt.Errorf("page at offset %d: %w", offset, err)
		}

		var page []T
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, false, fmt.Errorf("decode page at offset %d: %w", offset, err)
		}

		rows = append(rows, page...)
		if len(page) < limit {
			return rows, false, nil
		}
	}
	// Hit the cap with every page full; assume more rows exist upstream.
	return rows, true, nil
}
