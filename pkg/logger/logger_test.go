package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithContextAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelInfo, true)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithTraceID(ctx, "trace-1")

	log.WithContext(ctx).WithComponent("aggregator").Info("listed")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["request_id"] != "req-1" || record["trace_id"] != "trace-1" {
		t.Errorf("missing ids in %v", record)
	}
	if record["component"] != "aggregator" {
		t.Errorf("component = %v", record["component"])
	}
	if TraceIDFromContext(ctx) != "trace-1" || RequestIDFromContext(ctx) != "req-1" {
		t.Error("context accessors did not round-trip")
	}
}

func TestFromContextNilBase(t *testing.T) {
	if FromContext(context.Background(), nil) == nil {
		t.Fatal("FromContext returned nil")
	}
}
