package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fastjson"
)

// ErrNotObject is returned when a log record is valid JSON but not an object.
var ErrNotObject = errors.New("log record is not a JSON object")

var entryParsers fastjson.ParserPool

// zeroTime is the ordering key for entries whose timestamp cannot be parsed.
var zeroTime = time.Unix(0, 0).UTC()

// timestampLayouts are tried in order when parsing an entry timestamp.
// Timestamps without a zone are treated as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// LogEntry is one request/activity record. Only the timestamp and endpoint fields
// are interpreted; the raw JSON object is passed through unmodified.
type LogEntry struct {
	Timestamp string
	Endpoint  string

	raw json.RawMessage
	at  time.Time
}

// ParseLogEntry parses a single JSON object into a LogEntry.
func ParseLogEntry(data []byte) (LogEntry, error) {
	p := entryParsers.Get()
	defer entryParsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return LogEntry{}, fmt.Errorf("parsing log record: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return LogEntry{}, ErrNotObject
	}

	ts := string(v.GetStringBytes("timestamp"))
	raw := make(json.RawMessage, len(data))
	copy(raw, data)

	return LogEntry{
		Timestamp: ts,
		Endpoint:  string(v.GetStringBytes("endpoint")),
		raw:       raw,
		at:        ParseTimestamp(ts),
	}, nil
}

// ParseTimestamp parses an ISO-8601 timestamp. Unparsable values yield the Unix epoch
// so they order as the oldest entries.
func ParseTimestamp(ts string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return zeroTime
}

// Time returns the parsed timestamp used for ordering.
func (e LogEntry) Time() time.Time {
	if e.at.IsZero() {
		return ParseTimestamp(e.Timestamp)
	}
	return e.at
}

// Key returns the dedup identity of the entry.
func (e LogEntry) Key() EntryKey {
	return EntryKey{Timestamp: e.Timestamp, Endpoint: e.Endpoint}
}

// Raw returns the original JSON object.
func (e LogEntry) Raw() json.RawMessage {
	return e.raw
}

// MarshalJSON writes the original record unchanged.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	if len(e.raw) == 0 {
		return json.Marshal(map[string]string{
			"timestamp": e.Timestamp,
			"endpoint":  e.Endpoint,
		})
	}
	return e.raw, nil
}

// UnmarshalJSON parses a record, keeping its raw form.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	parsed, err := ParseLogEntry(data)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// EntryKey identifies the same logical event reported by more than one source.
type EntryKey struct {
	Timestamp string
	Endpoint  string
}

// LogWindow is the result of a listing query, newest first.
// Total is the sum of the totals reported by each source before deduplication.
type LogWindow struct {
	Items  []LogEntry `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Pagination limits.
const (
	DefaultLimit = 50
	MinLimit     = 1
	MaxLimit     = 100
)

// Pagination is a clamped (limit, offset) window.
type Pagination struct {
	Limit  int
	Offset int
}

// NewPagination clamps limit to [MinLimit, MaxLimit] and offset to >= 0.
func NewPagination(limit, offset int) Pagination {
	return NewPaginationWithMax(limit, offset, MaxLimit)
}

// NewPaginationWithMax clamps limit to [MinLimit, maxLimit] and offset to >= 0.
func NewPaginationWithMax(limit, offset, maxLimit int) Pagination {
	if limit < MinLimit {
		limit = MinLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

// End returns the exclusive end index of the window.
func (p Pagination) End() int {
	return p.Offset + p.Limit
}

// Slice returns the part of entries inside the window.
func (p Pagination) Slice(entries []LogEntry) []LogEntry {
	if p.Offset >= len(entries) {
		return []LogEntry{}
	}
	end := p.End()
	if end > len(entries) {
		end = len(entries)
	}
	return entries[p.Offset:end]
}
