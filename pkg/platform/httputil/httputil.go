// Package httputil centralizes JSON envelopes and domain error translation
// so every handler returns consistent shapes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"facade/internal/domain"
)

// ErrorResponse is the JSON envelope for all error responses.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are silently
// dropped; by then the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates domain errors into HTTP responses. Unknown errors
// map to 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	var (
		normErr    *domain.NormalizationError
		boroughErr *domain.AmbiguousBoroughError
		unresolved *domain.UnresolvedAddressError
	)

	switch {
	case errors.As(err, &normErr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_address", Description: normErr.Error()})
	case errors.As(err, &boroughErr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "ambiguous_borough", Description: boroughErr.Error()})
	case errors.As(err, &unresolved):
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "unresolved_address", Description: unresolved.Error()})
	case errors.Is(err, domain.ErrSnapshotNotFound):
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "snapshot_not_found"})
	case errors.Is(err, domain.ErrIdentityNotFound):
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "identity_not_found"})
	default:
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal"})
	}
}

// Decode parses a JSON request body into T, rejecting unknown fields.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}
