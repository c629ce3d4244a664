package handler

// CheckRequest asks for a snapshot by raw address text. PropertyKey is the
// disambiguation path: set it to one of the candidates returned by a
// previous ambiguous check.
type CheckRequest struct {
	Address     string `json:"address"`
	PropertyKey string `json:"propertyKey,omitempty"`
}

// SummaryRequest asks for a portfolio rollup over known buildings.
type SummaryRequest struct {
	BuildingIDs []string `json:"buildingIds"`
}
