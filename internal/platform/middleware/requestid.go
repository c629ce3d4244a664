package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"facade/pkg/requestcontext"
)

// RequestID assigns every request a correlation ID, honoring an inbound
// X-Request-ID header so IDs survive across hops.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
