package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"climate-platform/pkg/logging"
)

// RequestIDMiddleware tags every request with an id so API log lines
// can be correlated. An id supplied by the client is kept.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
