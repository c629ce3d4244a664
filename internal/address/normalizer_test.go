package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facade/internal/domain"
)

var testZIPs = map[string]domain.Borough{
	"10014": domain.BoroughManhattan,
	"11201": domain.BoroughBrooklyn,
	"10451": domain.BoroughBronx,
}

func TestNormalize(t *testing.T) {
	n := New(testZIPs)

	tests := []struct {
		name string
		raw  string
		want domain.NormalizedAddress
	}{
		{
			name: "abbreviated street with zip borough",
			raw:  "68 Perry St, 10014",
			want: domain.NormalizedAddress{
				HouseNumber: "68",
				StreetName:  "PERRY STREET",
				Borough:     domain.BoroughManhattan,
				ZIPCode:     "10014",
			},
		},
		{
			name: "explicit borough token",
			raw:  "131 Duane Street Manhattan",
			want: domain.NormalizedAddress{
				HouseNumber: "131",
				StreetName:  "DUANE STREET",
				Borough:     domain.BoroughManhattan,
			},
		},
		{
			name: "direction and ordinal expansion",
			raw:  "300 W 17th St, Manhattan",
			want: domain.NormalizedAddress{
				HouseNumber: "300",
				StreetName:  "WEST 17 STREET",
				Borough:     domain.BoroughManhattan,
			},
		},
		{
			name: "two token borough",
			raw:  "10 Richmond Ter, Staten Island",
			want: domain.NormalizedAddress{
				HouseNumber: "10",
				StreetName:  "RICHMOND TERRACE",
				Borough:     domain.BoroughStatenIsland,
			},
		},
		{
			name: "queens hyphenated house number",
			raw:  "68-12 Austin St Queens",
			want: domain.NormalizedAddress{
				HouseNumber: "68-12",
				StreetName:  "AUSTIN STREET",
				Borough:     domain.BoroughQueens,
			},
		},
		{
			name: "avenue expansion with zip and borough",
			raw:  "55 Flatbush Ave, Brooklyn, 11201",
			want: domain.NormalizedAddress{
				HouseNumber: "55",
				StreetName:  "FLATBUSH AVENUE",
				Borough:     domain.BoroughBrooklyn,
				ZIPCode:     "11201",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := New(testZIPs)
	first, err := n.Normalize("68 Perry St, 10014")
	require.NoError(t, err)
	for range 50 {
		again, err := n.Normalize("68 Perry St, 10014")
		require.NoError(t, err)
		require.Equal(t, first, again)
		require.Equal(t, first.Key(), again.Key())
	}
}

func TestNormalizeErrors(t *testing.T) {
	n := New(testZIPs)

	t.Run("empty input", func(t *testing.T) {
		_, err := n.Normalize("   ")
		var nerr *domain.NormalizationError
		require.ErrorAs(t, err, &nerr)
	})

	t.Run("missing house number", func(t *testing.T) {
		_, err := n.Normalize("Perry Street, Manhattan")
		var nerr *domain.NormalizationError
		require.ErrorAs(t, err, &nerr)
	})

	t.Run("missing street name", func(t *testing.T) {
		_, err := n.Normalize("68, Manhattan")
		var nerr *domain.NormalizationError
		require.ErrorAs(t, err, &nerr)
	})

	t.Run("no borough and unknown zip", func(t *testing.T) {
		_, err := n.Normalize("68 Perry St, 99999")
		var aerr *domain.AmbiguousBoroughError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, "99999", aerr.ZIP)
	})

	t.Run("caller supplied borough recovers ambiguity", func(t *testing.T) {
		got, err := n.NormalizeIn("68 Perry St, 99999", domain.BoroughManhattan)
		require.NoError(t, err)
		assert.Equal(t, domain.BoroughManhattan, got.Borough)
	})
}
