package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/narvanalabs/request-logs/internal/models"
	"github.com/narvanalabs/request-logs/pkg/config"
	"github.com/narvanalabs/request-logs/pkg/logger"
)

const testKey = "s3cret"

func testConfig(t *testing.T, remoteURL string) *config.Config {
	t.Helper()
	return &config.Config{
		APIHost:         "127.0.0.1",
		APIPort:         8080,
		ShutdownTimeout: time.Second,
		LogDir:          t.TempDir(),
		LogFile:         "request_logs.jsonl",
		Remote: config.RemoteConfig{
			DeploymentURL:  remoteURL,
			InternalAPIKey: testKey,
			APIKeyHeader:   config.DefaultInternalAPIKeyHeader,
			Timeout:        2 * time.Second,
		},
		PaginationMode: config.PaginationOverfetch,
		LogLevel:       "error",
		LogFormat:      "json",
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	return NewServer(cfg, logger.NewWithWriter(os.Stderr, slog.LevelError, true).Logger,
		WithIDGenerator(func() string { return "trace-1" }))
}

func writeLog(t *testing.T, cfg *config.Config, lines ...string) {
	t.Helper()
	if err := os.WriteFile(cfg.LogPath(), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func entry(ts, endpoint string) string {
	return `{"timestamp":"` + ts + `","endpoint":"` + endpoint + `","success":true}`
}

func serve(s *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeWindow(t *testing.T, rr *httptest.ResponseRecorder) models.LogWindow {
	t.Helper()
	var w models.LogWindow
	if err := json.Unmarshal(rr.Body.Bytes(), &w); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return w
}

func endpointsOf(items []models.LogEntry) string {
	names := make([]string, len(items))
	for i, e := range items {
		names[i] = e.Endpoint
	}
	return strings.Join(names, ",")
}

func TestServerMergesLocalAndCompanionLogs(t *testing.T) {
	companionCfg := testConfig(t, "http://127.0.0.1:1")
	writeLog(t, companionCfg,
		entry("2024-01-01T10:00:00Z", "A"),
		entry("2024-01-01T10:02:00Z", "C"),
	)
	companion := httptest.NewServer(newTestServer(t, companionCfg).Router())
	defer companion.Close()

	cfg := testConfig(t, companion.URL)
	writeLog(t, cfg,
		entry("2024-01-01T10:01:00Z", "B"),
		entry("2024-01-01T10:03:00Z", "D"),
		entry("2024-01-01T10:02:00Z", "C"),
	)
	s := newTestServer(t, cfg)

	rr := serve(s, http.MethodGet, "/logs?limit=10&offset=0", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	w := decodeWindow(t, rr)
	if got := endpointsOf(w.Items); got != "D,C,B,A" {
		t.Errorf("items = %s, want D,C,B,A", got)
	}
	if w.Total != 5 || w.Limit != 10 || w.Offset != 0 {
		t.Errorf("window = total %d limit %d offset %d", w.Total, w.Limit, w.Offset)
	}
	if rr.Header().Get("X-Trace-ID") != "trace-1" {
		t.Errorf("X-Trace-ID = %q", rr.Header().Get("X-Trace-ID"))
	}

	rr = serve(s, http.MethodGet, "/logs?limit=2&offset=1", nil)
	if got := endpointsOf(decodeWindow(t, rr).Items); got != "C,B" {
		t.Errorf("second window = %s, want C,B", got)
	}
}

func TestServerNoSources(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.LogDir = filepath.Join(cfg.LogDir, "missing")
	s := newTestServer(t, cfg)

	rr := serve(s, http.MethodGet, "/logs", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"items":[],"total":0,"limit":50,"offset":0}` {
		t.Errorf("body = %s", body)
	}
}

func TestServerClearIsIdempotent(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	writeLog(t, cfg, entry("2024-01-01T10:00:00Z", "A"))
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rr := serve(s, http.MethodDelete, "/logs", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("clear #%d status = %d: %s", i+1, rr.Code, rr.Body.String())
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["success"] != true || body["message"] != "日志已清空" {
			t.Errorf("clear #%d body = %v", i+1, body)
		}
	}
	if _, err := os.Stat(cfg.LogPath()); !os.IsNotExist(err) {
		t.Errorf("log file still present: %v", err)
	}

	w := decodeWindow(t, serve(s, http.MethodGet, "/logs", nil))
	if len(w.Items) != 0 || w.Total != 0 {
		t.Errorf("after clear = %+v", w)
	}
}

func TestServerCompanionErrorDegrades(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()

	cfg := testConfig(t, broken.URL)
	writeLog(t, cfg,
		entry("2024-01-01T10:00:00Z", "A"),
		entry("2024-01-01T10:01:00Z", "B"),
	)
	s := newTestServer(t, cfg)

	rr := serve(s, http.MethodGet, "/logs", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	w := decodeWindow(t, rr)
	if got := endpointsOf(w.Items); got != "B,A" || w.Total != 2 {
		t.Errorf("items = %s total %d", got, w.Total)
	}

	rr = serve(s, http.MethodDelete, "/logs", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("clear status = %d, want 200 with local success", rr.Code)
	}
}

func TestServerMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, testConfig(t, "http://127.0.0.1:1"))

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodPost} {
		rr := serve(s, method, "/logs", nil)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s /logs status = %d", method, rr.Code)
		}
		if body := strings.TrimSpace(rr.Body.String()); body != `{"message":"Method Not Allowed"}` {
			t.Errorf("%s /logs body = %s", method, body)
		}
	}
}

func TestServerInternalKeyEnforced(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	writeLog(t, cfg, entry("2024-01-01T10:00:00Z", "A"))
	s := newTestServer(t, cfg)

	if rr := serve(s, http.MethodGet, "/api/app/internal-logs", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("without key status = %d", rr.Code)
	}
	if rr := serve(s, http.MethodDelete, "/api/app/internal-logs", http.Header{"X-Internal-Api-Key": {"wrong"}}); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d", rr.Code)
	}

	rr := serve(s, http.MethodGet, "/api/app/internal-logs?limit=10", http.Header{"X-Internal-Api-Key": {testKey}})
	if rr.Code != http.StatusOK {
		t.Fatalf("with key status = %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Items) != 1 || body.Items[0]["endpoint"] != "A" {
		t.Errorf("body = %+v", body)
	}
}

func TestServerHealthAndDocs(t *testing.T) {
	s := newTestServer(t, testConfig(t, "http://127.0.0.1:1"))

	rr := serve(s, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("/health status = %d: %s", rr.Code, rr.Body.String())
	}
	var health map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "degraded" {
		t.Errorf("health status = %v, want degraded with the companion unreachable", health["status"])
	}

	rr = serve(s, http.MethodGet, "/api/docs/openapi.yaml", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/logs:") {
		t.Errorf("docs status = %d", rr.Code)
	}

	if rr := serve(s, http.MethodGet, "/logs.html", nil); rr.Code != http.StatusNotFound {
		t.Errorf("/logs.html without viewer = %d", rr.Code)
	}
	if rr := serve(s, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Errorf("/nope status = %d", rr.Code)
	}
}

func remoteHealth(t *testing.T, body []byte) string {
	t.Helper()
	var health struct {
		Components map[string]struct {
			Status string `json:"status"`
		} `json:"components"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatal(err)
	}
	return health.Components["remote"].Status
}

func TestServerRequestHostResolvingToItself(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Remote.InternalAPIKey = ""
	writeLog(t, cfg,
		entry("2024-01-01T10:00:00Z", "A"),
		entry("2024-01-01T10:01:00Z", "B"),
		entry("2024-01-01T10:02:00Z", "C"),
	)
	srv := httptest.NewServer(newTestServer(t, cfg).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/logs?limit=10")
	if err != nil {
		t.Fatal(err)
	}
	var w models.LogWindow
	err = json.NewDecoder(resp.Body).Decode(&w)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if got := endpointsOf(w.Items); got != "C,B,A" || w.Total != 3 {
		t.Errorf("items = %s total %d, want C,B,A total 3", got, w.Total)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	_, _ = io.Copy(&buf, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || remoteHealth(t, []byte(buf.String())) != "healthy" {
		t.Errorf("/health = %d %s", resp.StatusCode, buf.String())
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/logs", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("clear status = %d", resp.StatusCode)
	}
	if _, err := os.Stat(cfg.LogPath()); !os.IsNotExist(err) {
		t.Errorf("log file still present: %v", err)
	}
}

func TestServerHealthPingsRequestHost(t *testing.T) {
	companion := httptest.NewServer(newTestServer(t, testConfig(t, "http://127.0.0.1:1")).Router())
	defer companion.Close()

	cfg := testConfig(t, "")
	cfg.Remote.FallbackHost = "127.0.0.1:1"
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = strings.TrimPrefix(companion.URL, "http://")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if got := remoteHealth(t, rr.Body.Bytes()); got != "healthy" {
		t.Errorf("remote health via request host = %q: %s", got, rr.Body.String())
	}
}
