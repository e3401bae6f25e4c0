package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	apierrors "github.com/narvanalabs/request-logs/internal/api/errors"
)

// ViewerHandler serves the static log viewer page from disk.
type ViewerHandler struct {
	path   string
	logger *slog.Logger
}

// NewViewerHandler creates a viewer handler. An empty path disables the page.
func NewViewerHandler(path string, logger *slog.Logger) *ViewerHandler {
	return &ViewerHandler{
		path:   path,
		logger: logger,
	}
}

// Serve handles GET /logs.html.
func (h *ViewerHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.path == "" {
		apierrors.WriteError(w, apierrors.NewNotFoundError("Log viewer is not configured"))
		return
	}

	data, err := os.ReadFile(h.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("failed to read log viewer", "error", err, "path", h.path)
		}
		apierrors.WriteError(w, apierrors.NewNotFoundError("Log viewer not found"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
