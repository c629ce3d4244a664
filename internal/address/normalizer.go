// Package address canonicalizes free-text postal addresses into the
// structured key used to match municipal records. Normalization is pure
// domain logic - no I/O, no side effects - so cache keys stay stable and
// tests stay deterministic.
package address

import (
	"strings"
	"unicode"

	"facade/internal/domain"
)

// abbreviations is the fixed expansion table applied to every street token
// after uppercasing. Exact-token matches only; substring expansion would
// corrupt names like "WESTERVELT".
var abbreviations = map[string]string{
	"ST":    "STREET",
	"ST.":   "STREET",
	"AVE":   "AVENUE",
	"AVE.":  "AVENUE",
	"AV":    "AVENUE",
	"BLVD":  "BOULEVARD",
	"BLVD.": "BOULEVARD",
	"RD":    "ROAD",
	"RD.":   "ROAD",
	"PL":    "PLACE",
	"PL.":   "PLACE",
	"LN":    "LANE",
	"DR":    "DRIVE",
	"PKWY":  "PARKWAY",
	"TER":   "TERRACE",
	"CT":    "COURT",
	"SQ":    "SQUARE",
	"N":     "NORTH",
	"S":     "SOUTH",
	"E":     "EAST",
	"W":     "WEST",
	"N.":    "NORTH",
	"S.":    "SOUTH",
	"E.":    "EAST",
	"W.":    "WEST",
}

// boroughTokens maps explicit borough spellings to the canonical borough.
// "STATEN ISLAND" is handled as a two-token special case before lookup.
var boroughTokens = map[string]domain.Borough{
	"MANHATTAN":     domain.BoroughManhattan,
	"MN":            domain.BoroughManhattan,
	"BRONX":         domain.BoroughBronx,
	"BX":            domain.BoroughBronx,
	"BROOKLYN":      domain.BoroughBrooklyn,
	"BK":            domain.BoroughBrooklyn,
	"BKLYN":         domain.BoroughBrooklyn,
	"QUEENS":        domain.BoroughQueens,
	"QN":            domain.BoroughQueens,
	"STATEN ISLAND": domain.BoroughStatenIsland,
	"SI":            domain.BoroughStatenIsland,
}

// Normalizer canonicalizes raw addresses. The ZIP-to-borough table is
// injected so tests and deployments control borough inference explicitly.
type Normalizer struct {
	zipBoroughs map[string]domain.Borough
}

// New constructs a Normalizer with the supplied ZIP-to-borough table. A nil
// table is valid; addresses without an explicit borough token then fail
// with AmbiguousBoroughError.
func New(zipBoroughs map[string]domain.Borough) *Normalizer {
	return &Normalizer{zipBoroughs: zipBoroughs}
}

// Normalize parses raw into its canonical form. Deterministic: identical
// input always yields identical output.
func (n *Normalizer) Normalize(raw string) (domain.NormalizedAddress, error) {
	return n.normalize(raw, "")
}

// NormalizeIn is Normalize with a caller-supplied borough, used after an
// AmbiguousBoroughError when the caller knows the borough out of band.
func (n *Normalizer) NormalizeIn(raw string, borough domain.Borough) (domain.NormalizedAddress, error) {
	return n.normalize(raw, borough)
}

func (n *Normalizer) normalize(raw string, explicit domain.Borough) (domain.NormalizedAddress, error) {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return domain.NormalizedAddress{}, &domain.NormalizationError{Raw: raw, Reason: "empty address"}
	}

	house := tokens[0]
	if !isHouseNumber(house) {
		return domain.NormalizedAddress{}, &domain.NormalizationError{Raw: raw, Reason: "no leading house number"}
	}
	tokens = tokens[1:]

	borough := explicit
	zip := ""

	// Strip trailing ZIP and borough tokens in either order.
	for changed := true; changed && len(tokens) > 0; {
		changed = false
		last := tokens[len(tokens)-1]
		if isZIP(last) {
			zip = last
			tokens = tokens[:len(tokens)-1]
			changed = true
			continue
		}
		if b, rest, ok := trailingBorough(tokens); ok {
			if borough == "" {
				borough = b
			}
			tokens = rest
			changed = true
		}
	}

	street := streetName(tokens)
	if street == "" {
		return domain.NormalizedAddress{}, &domain.NormalizationError{Raw: raw, Reason: "empty street name"}
	}

	if borough == "" {
		if b, ok := n.zipBoroughs[zip]; ok {
			borough = b
		} else {
			return domain.NormalizedAddress{}, &domain.AmbiguousBoroughError{Raw: raw, ZIP: zip}
		}
	}

	return domain.NormalizedAddress{
		HouseNumber: house,
		StreetName:  street,
		Borough:     borough,
		ZIPCode:     zip,
	}, nil
}

// tokenize uppercases and splits on whitespace and commas.
func tokenize(raw string) []string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	fields := strings.FieldsFunc(upper, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// isHouseNumber accepts digits optionally hyphenated (Queens style "68-12")
// or suffixed with a single letter ("131A").
func isHouseNumber(tok string) bool {
	if tok == "" || !unicode.IsDigit(rune(tok[0])) {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) && r != '-' && !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isZIP(tok string) bool {
	if len(tok) != 5 {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// trailingBorough matches an explicit borough at the end of the token list,
// including the two-token "STATEN ISLAND".
func trailingBorough(tokens []string) (domain.Borough, []string, bool) {
	n := len(tokens)
	if n >= 2 {
		two := tokens[n-2] + " " + tokens[n-1]
		if b, ok := boroughTokens[two]; ok {
			return b, tokens[:n-2], true
		}
	}
	if n >= 1 {
		if b, ok := boroughTokens[tokens[n-1]]; ok {
			return b, tokens[:n-1], true
		}
	}
	return "", tokens, false
}

// streetName expands abbreviations and ordinals, then joins the tokens.
func streetName(tokens []string) string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if exp, ok := abbreviations[tok]; ok {
			out = append(out, exp)
			continue
		}
		if num, ok := ordinal(tok); ok {
			out = append(out, num)
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// ordinal strips ordinal suffixes from numeric tokens: "17TH" -> "17",
// "1ST" -> "1", "2ND" -> "2", "3RD" -> "3".
func ordinal(tok string) (string, bool) {
	if len(tok) < 3 {
		return "", false
	}
	suffix := tok[len(tok)-2:]
	switch suffix {
	case "ST", "ND", "RD", "TH":
	default:
		return "", false
	}
	digits := tok[:len(tok)-2]
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return "", false
		}
	}
	return digits, true
}
