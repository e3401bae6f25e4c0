package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/narvanalabs/request-logs/internal/api/errors"
	"github.com/narvanalabs/request-logs/internal/logs"
	"github.com/narvanalabs/request-logs/pkg/logger"
)

// LoopGuard answers 508 when a request carries this instance's own id in
// logs.InstanceHeader, so an aggregator never reads its own file back as a remote source.
func LoopGuard(instanceID string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if instanceID == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(logs.InstanceHeader) == instanceID {
				logger.FromContext(r.Context(), log).Debug("companion request from this instance", "path", r.URL.Path)
				apierrors.WriteJSON(w, http.StatusLoopDetected, apierrors.MessageResponse{Message: "Loop Detected"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
