package middleware

import (
	"net/http"

	"github.com/evidencelab/symptom-signal-platform/pkg/logger"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID returns middleware that assigns each request a UUID (or reuses
// the inbound X-Request-ID header), stores it in the request context for
// logging, and echoes it back in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
