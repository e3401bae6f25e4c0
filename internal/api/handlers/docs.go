package handlers

import (
	"log/slog"
	"net/http"
)

// DocsHandler serves the OpenAPI document.
type DocsHandler struct {
	spec   []byte
	logger *slog.Logger
}

// NewDocsHandler creates a new docs handler for the given OpenAPI document.
func NewDocsHandler(spec []byte, logger *slog.Logger) *DocsHandler {
	return &DocsHandler{
		spec:   spec,
		logger: logger,
	}
}

// ServeOpenAPISpec serves the OpenAPI specification at /api/docs/openapi.yaml.
func (h *DocsHandler) ServeOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.spec) == 0 {
		h.logger.Error("OpenAPI spec is empty")
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Write(h.spec)
}
