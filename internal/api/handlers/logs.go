// Package handlers provides HTTP request handlers for the request log API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/narvanalabs/request-logs/internal/api/errors"
	"github.com/narvanalabs/request-logs/internal/logs"
	"github.com/narvanalabs/request-logs/internal/models"
)

// Messages returned by DELETE /logs.
const (
	ClearSucceededMessage = "日志已清空"
	ClearFailedMessage    = "清空日志失败"
)

// LogLister produces the merged log window.
type LogLister interface {
	List(ctx context.Context, p models.Pagination, requestHost string) *logs.Listing
}

// LogClearer clears every log source.
type LogClearer interface {
	ClearAll(ctx context.Context, requestHost string) models.ClearResult
}

// LogHandler handles the public /logs endpoint.
type LogHandler struct {
	lister  LogLister
	clearer LogClearer
	logger  *slog.Logger
}

// NewLogHandler creates a new log handler.
func NewLogHandler(lister LogLister, clearer LogClearer, logger *slog.Logger) *LogHandler {
	return &LogHandler{
		lister:  lister,
		clearer: clearer,
		logger:  logger,
	}
}

// ClearResponse is the body of DELETE /logs.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// List handles GET /logs?limit=&offset= - returns the merged, newest-first window.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, models.MaxLimit)

	listing := h.lister.List(r.Context(), p, r.Host)

	apierrors.WriteJSON(w, http.StatusOK, listing.LogWindow)
}

// Clear handles DELETE /logs - clears the local file and the remote companion.
func (h *LogHandler) Clear(w http.ResponseWriter, r *http.Request) {
	res := h.clearer.ClearAll(r.Context(), r.Host)

	if !res.Success() {
		apierrors.WriteJSON(w, http.StatusInternalServerError, ClearResponse{
			Success: false,
			Message: ClearFailedMessage,
		})
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, ClearResponse{
		Success: true,
		Message: ClearSucceededMessage,
	})
}

// ParsePagination reads limit and offset from the query string. Missing or
// non-numeric values use the defaults; numeric values are clamped.
func ParsePagination(r *http.Request, maxLimit int) models.Pagination {
	q := r.URL.Query()
	return models.NewPaginationWithMax(
		queryInt(q.Get("limit"), models.DefaultLimit),
		queryInt(q.Get("offset"), 0),
		maxLimit,
	)
}

func queryInt(value string, defaultValue int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
