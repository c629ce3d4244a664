// Package handler is the thin HTTP layer over the compliance service. It
// decodes, delegates, and translates; no pipeline logic lives here.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"facade/internal/domain"
	"facade/pkg/platform/httputil"
	"facade/pkg/requestcontext"
)

// Service is what the handler needs from the compliance service.
type Service interface {
	Check(ctx context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error)
	CheckAddress(ctx context.Context, raw string) (domain.ComplianceSnapshot, error)
	CheckAddressCandidate(ctx context.Context, raw, propertyKey string) (domain.ComplianceSnapshot, error)
	Summary(ctx context.Context, ids []domain.BuildingID) (domain.PortfolioSummary, error)
	Invalidate(ctx context.Context, id domain.BuildingID) error
	ForceRefresh(ctx context.Context, id domain.BuildingID) (domain.ComplianceSnapshot, error)
}

// Handler wires compliance endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a compliance handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/buildings/{buildingID}/compliance", h.HandleGetCompliance)
	r.Post("/v1/compliance/check", h.HandleCheck)
	r.Post("/v1/portfolio/summary", h.HandleSummary)
}

// RegisterAdmin mounts the administrative endpoints. The router applies the
// admin JWT middleware before these run.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/buildings/{buildingID}/invalidate", h.HandleInvalidate)
	r.Post("/admin/buildings/{buildingID}/refresh", h.HandleForceRefresh)
}

// HandleGetCompliance handles GET /v1/buildings/{buildingID}/compliance.
func (h *Handler) HandleGetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.BuildingID(chi.URLParam(r, "buildingID"))

	snapshot, err := h.service.Check(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "compliance check failed", err, "building_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snapshot))
}

// HandleCheck handles POST /v1/compliance/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, err := httputil.Decode[CheckRequest](r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid_request", Description: err.Error()})
		return
	}
	if req.Address == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid_request", Description: "address is required"})
		return
	}

	var snapshot domain.ComplianceSnapshot
	if req.PropertyKey != "" {
		snapshot, err = h.service.CheckAddressCandidate(ctx, req.Address, req.PropertyKey)
	} else {
		snapshot, err = h.service.CheckAddress(ctx, req.Address)
	}
	if err != nil {
		var ambiguous *domain.AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			httputil.WriteJSON(w, http.StatusConflict, fromAmbiguous(ambiguous))
			return
		}
		h.writeError(ctx, w, "address check failed", err, "address", req.Address)
		return
	}

	h.logger.InfoContext(ctx, "address check complete",
		"request_id", requestcontext.RequestID(ctx),
		"building_id", snapshot.BuildingID,
		"score", snapshot.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snapshot))
}

// HandleSummary handles POST /v1/portfolio/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[SummaryRequest](r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid_request", Description: err.Error()})
		return
	}
	ids := make([]domain.BuildingID, 0, len(req.BuildingIDs))
	for _, raw := range req.BuildingIDs {
		ids = append(ids, domain.BuildingID(raw))
	}

	summary, err := h.service.Summary(ctx, ids)
	if err != nil {
		h.writeError(ctx, w, "portfolio summary failed", err, "buildings", len(ids))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary))
}

// HandleInvalidate handles POST /admin/buildings/{buildingID}/invalidate.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.BuildingID(chi.URLParam(r, "buildingID"))

	if err := h.service.Invalidate(ctx, id); err != nil {
		h.writeError(ctx, w, "invalidate failed", err, "building_id", id)
		return
	}
	h.logger.InfoContext(ctx, "building invalidated",
		"request_id", requestcontext.RequestID(ctx),
		"building_id", id,
		"operator", requestcontext.Operator(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleForceRefresh handles POST /admin/buildings/{buildingID}/refresh.
func (h *Handler) HandleForceRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.BuildingID(chi.URLParam(r, "buildingID"))

	snapshot, err := h.service.ForceRefresh(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "force refresh failed", err, "building_id", id)
		return
	}
	h.logger.InfoContext(ctx, "building force-refreshed",
		"request_id", requestcontext.RequestID(ctx),
		"building_id", id,
		"operator", requestcontext.Operator(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snapshot))
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	h.logger.ErrorContext(ctx, msg, args...)
	httputil.WriteError(w, err)
}

func fromAmbiguous(e *domain.AmbiguousMatchError) AmbiguousResponse {
	candidates := make([]CandidateResponse, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		candidates = append(candidates, CandidateResponse{
			PropertyKey:  c.PropertyKey,
			StructureKey: c.StructureKey,
		})
	}
	return AmbiguousResponse{
		Error:      "ambiguous_address",
		Address:    e.Address.Key(),
		Candidates: candidates,
	}
}
