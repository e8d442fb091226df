package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/chatmate/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags the request logger with the caller-supplied or a fresh request id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "request_id", requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
