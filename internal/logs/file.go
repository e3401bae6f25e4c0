// Package logs reads, merges, and clears request logs kept in a local append-only
// file and in a remote companion service.
package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/narvanalabs/request-logs/internal/models"
	applog "github.com/narvanalabs/request-logs/pkg/logger"
)

// DefaultFileName is the name of the log file inside the log directory.
const DefaultFileName = "request_logs.jsonl"

// FileStore is the local newline-delimited JSON log.
type FileStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	// mu serializes appends and deletes. Reads take no lock.
	mu sync.Mutex
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithClock sets the clock used to stamp appended entries.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		s.now = now
	}
}

// NewFileStore creates a store for the log file at dir/name.
func NewFileStore(dir, name string, logger *slog.Logger, opts ...FileStoreOption) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = DefaultFileName
	}
	s := &FileStore{
		path:   filepath.Join(dir, name),
		logger: logger.With("component", "file_log"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the log file path.
func (s *FileStore) Path() string {
	return s.path
}

// Read returns the window of lines [total-1-offset, total-offset-limit] newest first.
// Total counts every non-blank line, including lines that fail to parse.
// It never returns an error: failures are logged and reported as a degraded result.
func (s *FileStore) Read(ctx context.Context, limit, offset int) models.SourceResult {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.AbsentResult()
		}
		applog.FromContext(ctx, s.logger).Error("failed to read logs", "path", s.path, "error", err)
		return models.DegradedResult(models.ReasonIO, fmt.Errorf("reading %s: %w", s.path, err))
	}

	lines := splitLines(data)
	total := len(lines)
	limit, offset = max(limit, 0), max(offset, 0)

	entries := make([]models.LogEntry, 0, min(limit, total))
	stop := max(0, total-offset-limit)
	for i := total - 1 - offset; i >= stop; i-- {
		entry, err := models.ParseLogEntry(lines[i])
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return models.OKResult(entries, total)
}

// splitLines returns the non-blank lines of data.
func splitLines(data []byte) [][]byte {
	raw := bytes.Split(data, []byte("\n"))
	lines := make([][]byte, 0, len(raw))
	for _, line := range raw {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Clear deletes the log file. A missing file is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", s.path, err)
	}
	return nil
}

// Record describes a request to be appended to the log.
type Record struct {
	Endpoint   string         `json:"endpoint"`
	Request    map[string]any `json:"request"`
	Response   map[string]any `json:"response"`
	Error      *string        `json:"error"`
	DurationMS *float64       `json:"duration_ms"`
}

// Append writes one record as a JSON line, creating the directory if needed.
// The stored object carries the current UTC timestamp and a success flag.
func (s *FileStore) Append(ctx context.Context, rec Record) (models.LogEntry, error) {
	line, err := json.Marshal(struct {
		Timestamp string `json:"timestamp"`
		Record
		Success bool `json:"success"`
	}{
		Timestamp: FormatTimestamp(s.now()),
		Record:    rec,
		Success:   rec.Error == nil,
	})
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("encoding log record: %w", err)
	}

	entry, err := models.ParseLogEntry(line)
	if err != nil {
		return models.LogEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return models.LogEntry{}, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return models.LogEntry{}, fmt.Errorf("writing %s: %w", s.path, err)
	}

	return entry, nil
}

// FormatTimestamp renders t as UTC ISO-8601 with microseconds and a trailing Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

// Ping checks that the log directory is accessible.
func (s *FileStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Created on first append.
			return nil
		}
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
