package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/narvanalabs/request-logs/internal/models"
	"github.com/narvanalabs/request-logs/pkg/config"
	applog "github.com/narvanalabs/request-logs/pkg/logger"
)

// InternalLogsPath is the companion's log listing and deletion endpoint.
const InternalLogsPath = "/api/app/internal-logs"

// RequestIDHeader carries the caller's trace id to the companion.
const RequestIDHeader = "X-Request-ID"

// InstanceHeader carries the caller's instance id. A companion that receives its own
// id answers 508 Loop Detected, since it would only be reading the caller's file.
const InstanceHeader = "X-Log-Instance"

// MaxRemoteWindow is the largest limit a companion serves in one listing.
const MaxRemoteWindow = 10000

// RemoteSource fetches and clears logs held by the remote companion service.
// Every failure degrades to an empty result; nothing is returned as an error.
type RemoteSource struct {
	cfg        config.RemoteConfig
	httpClient *http.Client
	logger     *slog.Logger
	instanceID string
}

// RemoteOption configures a RemoteSource.
type RemoteOption func(*RemoteSource)

// WithHTTPClient sets the HTTP client used for companion requests.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *RemoteSource) {
		r.httpClient = client
	}
}

// WithInstanceID sets the id sent in InstanceHeader.
func WithInstanceID(id string) RemoteOption {
	return func(r *RemoteSource) {
		r.instanceID = id
	}
}

// NewRemoteSource creates a remote source. The HTTP client timeout is cfg.Timeout,
// or 10 seconds when unset.
func NewRemoteSource(cfg config.RemoteConfig, logger *slog.Logger, opts ...RemoteOption) *RemoteSource {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = config.DefaultInternalAPIKeyHeader
	}

	r := &RemoteSource{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "remote_log"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// remoteListResponse is the companion's listing body.
type remoteListResponse struct {
	Items []json.RawMessage `json:"items"`
	Total int               `json:"total"`
}

// Fetch returns the companion's window for (limit, offset), newest first.
func (r *RemoteSource) Fetch(ctx context.Context, limit, offset int, requestHost string) models.SourceResult {
	log := applog.FromContext(ctx, r.logger)

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	resp, err := r.do(ctx, http.MethodGet, requestHost, q)
	if err != nil {
		log.Error("failed to fetch remote logs", "error", err)
		return models.DegradedResult(models.ReasonNetwork, err)
	}
	defer resp.Body.Close()

	if res, ok := r.checkStatus(log, resp, "fetch"); !ok {
		if res.Reason == models.ReasonSelf {
			return models.SelfResult()
		}
		return models.DegradedResult(res.Reason, res.Err)
	}

	var body remoteListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Error("failed to decode remote logs", "error", err)
		return models.DegradedResult(models.ReasonDecode, fmt.Errorf("decoding response: %w", err))
	}

	entries := make([]models.LogEntry, 0, len(body.Items))
	for _, item := range body.Items {
		entry, err := models.ParseLogEntry(item)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return models.OKResult(entries, body.Total)
}

// Clear asks the companion to delete its logs.
func (r *RemoteSource) Clear(ctx context.Context, requestHost string) models.Outcome {
	log := applog.FromContext(ctx, r.logger)

	resp, err := r.do(ctx, http.MethodDelete, requestHost, nil)
	if err != nil {
		log.Error("failed to clear remote logs", "error", err)
		return models.Outcome{Reason: models.ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	if res, ok := r.checkStatus(log, resp, "clear"); !ok {
		return res
	}
	return models.Outcome{Success: true}
}

// Ping issues a minimal listing request against the companion a listing from the same
// client would reach, using the host stored by ContextWithRequestHost.
// A companion that is this instance counts as reachable.
func (r *RemoteSource) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "1")
	q.Set("offset", "0")

	resp, err := r.do(ctx, http.MethodGet, RequestHostFromContext(ctx), q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusLoopDetected {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (r *RemoteSource) do(ctx context.Context, method, requestHost string, query url.Values) (*http.Response, error) {
	endpoint := ResolveBaseURL(r.cfg, requestHost) + InternalLogsPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.cfg.InternalAPIKey != "" {
		req.Header.Set(r.cfg.APIKeyHeader, r.cfg.InternalAPIKey)
	}
	if traceID := applog.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set(RequestIDHeader, traceID)
	}
	if r.instanceID != "" {
		req.Header.Set(InstanceHeader, r.instanceID)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	return resp, nil
}

// checkStatus classifies a non-2xx response. Auth failures are expected where the
// shared secret is not provisioned and are only logged at debug level.
func (r *RemoteSource) checkStatus(log *slog.Logger, resp *http.Response, op string) (models.Outcome, bool) {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return models.Outcome{Success: true}, true
	}
	if resp.StatusCode == http.StatusLoopDetected {
		io.Copy(io.Discard, resp.Body)
		log.Debug("remote logs resolve to this instance, skipping", "op", op)
		return models.Outcome{Reason: models.ReasonSelf}, false
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}

	if err.Unauthorized() {
		log.Debug("remote logs rejected credentials", "op", op, "status", resp.StatusCode)
		return models.Outcome{Reason: models.ReasonUnauthorized, Err: err}, false
	}

	log.Warn("remote logs returned error status", "op", op, "status", resp.StatusCode, "body", err.Body)
	return models.Outcome{Reason: models.ReasonStatus, Err: err}, false
}

type requestHostKey struct{}

// ContextWithRequestHost stores the inbound request host for Ping.
func ContextWithRequestHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, requestHostKey{}, host)
}

// RequestHostFromContext returns the host stored by ContextWithRequestHost.
func RequestHostFromContext(ctx context.Context) string {
	host, _ := ctx.Value(requestHostKey{}).(string)
	return host
}

// StatusError is a non-2xx response from the companion.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote logs API error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("remote logs API error (%d): %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether the companion rejected the request's credentials.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ResolveBaseURL picks the companion base URL: the deployment URL if configured,
// otherwise the inbound request host, otherwise the fallback host.
func ResolveBaseURL(cfg config.RemoteConfig, requestHost string) string {
	switch {
	case cfg.DeploymentURL != "":
		if hasScheme(cfg.DeploymentURL) {
			return strings.TrimRight(cfg.DeploymentURL, "/")
		}
		return "https://" + strings.TrimRight(cfg.DeploymentURL, "/")
	case requestHost != "":
		return withInferredScheme(requestHost)
	case cfg.FallbackHost != "":
		return withInferredScheme(cfg.FallbackHost)
	default:
		return "http://127.0.0.1:8000"
	}
}

func withInferredScheme(host string) string {
	host = strings.TrimRight(host, "/")
	if hasScheme(host) {
		return host
	}
	if IsLocalHost(host) {
		return "http://" + host
	}
	return "https://" + host
}

func hasScheme(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsLocalHost reports whether host (optionally with a port) names this machine.
func IsLocalHost(host string) bool {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.Trim(strings.ToLower(hostname), "[]")

	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}
