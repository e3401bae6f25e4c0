package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	apierrors "github.com/narvanalabs/request-logs/internal/api/errors"
	"github.com/narvanalabs/request-logs/pkg/logger"
)

// InternalKey rejects requests whose header does not carry the shared secret.
// An empty secret disables the check.
func InternalKey(header, secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				logger.FromContext(r.Context(), log).Debug("internal key rejected", "path", r.URL.Path, "present", got != "")
				apierrors.WriteError(w, apierrors.NewUnauthorizedError("Invalid internal API key").
					WithRequestID(logger.RequestIDFromContext(r.Context())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
