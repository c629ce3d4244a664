// Package httpapi assembles the HTTP surface: public compliance endpoints,
// the JWT-guarded admin group, health, and metrics.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facade/internal/compliance/handler"
	"facade/internal/platform/middleware"
	"facade/pkg/platform/httputil"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config carries router dependencies.
type Config struct {
	Handler     *handler.Handler
	AdminJWTKey string
	Logger      *slog.Logger
	// Checks run on /healthz, keyed by component name. Nil-valued entries
	// are skipped so optional stores can be listed unconditionally.
	Checks map[string]HealthChecker
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	cfg.Handler.Register(r)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(cfg.AdminJWTKey, cfg.Logger))
		cfg.Handler.RegisterAdmin(admin)
	})

	r.Get("/healthz", healthHandler(cfg.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status":     statusWord(status),
			"components": components,
		})
	}
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
