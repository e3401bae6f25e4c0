package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/narvanalabs/request-logs/pkg/logger"
)

// IDGenerator produces trace identifiers.
type IDGenerator func() string

// UUIDGenerator returns random UUIDv4 strings.
func UUIDGenerator() string {
	return uuid.NewString()
}

// Trace stores chi's request id and a fresh trace id in the request context so that
// loggers and outbound calls can pick them up. A nil generator uses UUIDGenerator.
func Trace(gen IDGenerator) func(http.Handler) http.Handler {
	if gen == nil {
		gen = UUIDGenerator
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if reqID := middleware.GetReqID(ctx); reqID != "" {
				ctx = logger.ContextWithRequestID(ctx, reqID)
			}

			traceID := gen()
			ctx = logger.ContextWithTraceID(ctx, traceID)
			w.Header().Set("X-Trace-ID", traceID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
