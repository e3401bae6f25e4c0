// Package config provides environment-based configuration for the request log service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Pagination modes for merging the file and remote sources.
const (
	// PaginationOverfetch asks each source for offset+limit entries from the start
	// and windows the merged result once.
	PaginationOverfetch = "overfetch"
	// PaginationWindow asks each source for the caller's window independently.
	PaginationWindow = "window"
)

// DefaultInternalAPIKeyHeader is the header carrying the shared secret.
const DefaultInternalAPIKeyHeader = "x-internal-api-key"

// Config holds all configuration for the request log service.
type Config struct {
	// Server configuration
	APIHost         string
	APIPort         int
	ShutdownTimeout time.Duration

	// Local file source
	LogDir  string
	LogFile string

	// Remote companion
	Remote RemoteConfig

	// PaginationMode is PaginationOverfetch or PaginationWindow.
	PaginationMode string

	// ViewerPath is an HTML page served verbatim at /logs.html. Empty disables it.
	ViewerPath string

	// Operational logging
	LogLevel  string
	LogFormat string
}

// RemoteConfig holds settings for reaching the remote log companion.
type RemoteConfig struct {
	// DeploymentURL is the platform-provided public URL (host, optionally with scheme).
	DeploymentURL string
	// FallbackHost is used when neither a deployment URL nor a request host is known.
	FallbackHost string
	// InternalAPIKey is the shared secret sent to the companion. Empty means none.
	InternalAPIKey string
	// APIKeyHeader is the header name carrying InternalAPIKey.
	APIKeyHeader string
	Timeout      time.Duration
}

// LogPath returns the full path of the local log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogDir, c.LogFile)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := LoadWithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.PaginationMode != PaginationOverfetch && c.PaginationMode != PaginationWindow {
		return fmt.Errorf("PAGINATION_MODE must be %q or %q, got %q", PaginationOverfetch, PaginationWindow, c.PaginationMode)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535")
	}
	if c.LogDir == "" || c.LogFile == "" {
		return fmt.Errorf("XHS_LOG_DIR and XHS_LOG_FILE must not be empty")
	}
	return nil
}

// LoadWithDefaults loads configuration without validating it, useful for testing.
func LoadWithDefaults() *Config {
	return &Config{
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogDir:          getEnv("XHS_LOG_DIR", "/tmp/xhs_logs"),
		LogFile:         getEnv("XHS_LOG_FILE", "request_logs.jsonl"),
		Remote: RemoteConfig{
			DeploymentURL:  getEnv("VERCEL_URL", ""),
			FallbackHost:   getEnv("XHS_APP_HOST", "127.0.0.1:8000"),
			InternalAPIKey: getEnv("XHS_INTERNAL_API_KEY", ""),
			APIKeyHeader:   getEnv("INTERNAL_API_KEY_HEADER", DefaultInternalAPIKeyHeader),
			Timeout:        getDurationEnv("REMOTE_TIMEOUT", 10*time.Second),
		},
		PaginationMode: getEnv("PAGINATION_MODE", PaginationOverfetch),
		ViewerPath:     getEnv("LOG_VIEWER_PATH", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
