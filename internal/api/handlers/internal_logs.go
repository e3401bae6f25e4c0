package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/narvanalabs/request-logs/internal/api/errors"
	"github.com/narvanalabs/request-logs/internal/logs"
	"github.com/narvanalabs/request-logs/internal/models"
	"github.com/narvanalabs/request-logs/pkg/logger"
)

// InternalMaxLimit bounds a single companion listing request.
const InternalMaxLimit = logs.MaxRemoteWindow

// MaxAppendBodyBytes bounds the body of an append request.
const MaxAppendBodyBytes = 1 << 20

// LocalLogStore is the local log as seen by the companion endpoint.
type LocalLogStore interface {
	Read(ctx context.Context, limit, offset int) models.SourceResult
	Clear(ctx context.Context) error
	Append(ctx context.Context, rec logs.Record) (models.LogEntry, error)
}

// InternalLogHandler serves this instance's local log to peers at /api/app/internal-logs.
type InternalLogHandler struct {
	store  LocalLogStore
	logger *slog.Logger
}

// NewInternalLogHandler creates a new companion handler.
func NewInternalLogHandler(store LocalLogStore, logger *slog.Logger) *InternalLogHandler {
	return &InternalLogHandler{
		store:  store,
		logger: logger,
	}
}

// InternalListResponse is the companion listing body.
type InternalListResponse struct {
	Items []models.LogEntry `json:"items"`
	Total int               `json:"total"`
}

// List handles GET /api/app/internal-logs - returns a window of the local file only.
func (h *InternalLogHandler) List(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, InternalMaxLimit)

	res := h.store.Read(r.Context(), p.Limit, p.Offset)

	apierrors.WriteJSON(w, http.StatusOK, InternalListResponse{
		Items: res.Entries,
		Total: res.Total,
	})
}

// Clear handles DELETE /api/app/internal-logs.
func (h *InternalLogHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to clear logs", "error", err)
		apierrors.WriteJSON(w, http.StatusInternalServerError, map[string]bool{"success": false})
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Append handles POST /api/app/internal-logs - records one request.
func (h *InternalLogHandler) Append(w http.ResponseWriter, r *http.Request) {
	var rec logs.Record
	r.Body = http.MaxBytesReader(w, r.Body, MaxAppendBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		message := "Invalid request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "Request body too large"
		}
		apierrors.WriteError(w, apierrors.NewValidationError(message).
			WithRequestID(logger.RequestIDFromContext(r.Context())))
		return
	}
	if strings.TrimSpace(rec.Endpoint) == "" {
		apierrors.WriteError(w, apierrors.NewValidationError("endpoint is required").
			WithRequestID(logger.RequestIDFromContext(r.Context())))
		return
	}

	entry, err := h.store.Append(r.Context(), rec)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to append log", "error", err, "endpoint", rec.Endpoint)
		apierrors.WriteError(w, apierrors.NewInternalError("Failed to record log").
			WithRequestID(logger.RequestIDFromContext(r.Context())))
		return
	}

	apierrors.WriteJSON(w, http.StatusCreated, entry)
}
