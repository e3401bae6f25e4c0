package models

import "fmt"

// SourceStatus describes how a log source produced its result.
type SourceStatus string

const (
	// SourceOK indicates the source was read successfully.
	SourceOK SourceStatus = "ok"
	// SourceAbsent indicates the source has no data yet (e.g. the log file does not exist).
	SourceAbsent SourceStatus = "absent"
	// SourceDegraded indicates the source failed and was replaced by an empty result.
	SourceDegraded SourceStatus = "degraded"
)

// DegradeReason classifies why a source was degraded.
type DegradeReason string

const (
	ReasonNone         DegradeReason = ""
	ReasonIO           DegradeReason = "io"
	ReasonNetwork      DegradeReason = "network"
	ReasonUnauthorized DegradeReason = "unauthorized"
	ReasonStatus       DegradeReason = "status"
	ReasonDecode       DegradeReason = "decode"
	// ReasonSelf marks a companion that turned out to be this instance.
	ReasonSelf         DegradeReason = "self"
)

// SourceResult is the window produced by a single source before merging.
type SourceResult struct {
	Entries []LogEntry
	Total   int
	Status  SourceStatus
	Reason  DegradeReason
	Err     error
}

// OKResult returns a successful source result.
func OKResult(entries []LogEntry, total int) SourceResult {
	if entries == nil {
		entries = []LogEntry{}
	}
	return SourceResult{Entries: entries, Total: total, Status: SourceOK}
}

// AbsentResult returns the empty result for a source with no data.
func AbsentResult() SourceResult {
	return SourceResult{Entries: []LogEntry{}, Status: SourceAbsent}
}

// SelfResult returns the empty result for a companion that is this instance. Its
// entries are already covered by the file source, so it is absent rather than degraded.
func SelfResult() SourceResult {
	return SourceResult{Entries: []LogEntry{}, Status: SourceAbsent, Reason: ReasonSelf}
}

// DegradedResult returns the empty result for a failed source.
func DegradedResult(reason DegradeReason, err error) SourceResult {
	return SourceResult{Entries: []LogEntry{}, Status: SourceDegraded, Reason: reason, Err: err}
}

// Degraded reports whether the source failed.
func (r SourceResult) Degraded() bool {
	return r.Status == SourceDegraded
}

// String implements fmt.Stringer for log output.
func (r SourceResult) String() string {
	if r.Degraded() {
		return fmt.Sprintf("degraded(%s): %v", r.Reason, r.Err)
	}
	return fmt.Sprintf("%s(entries=%d, total=%d)", r.Status, len(r.Entries), r.Total)
}

// Outcome is the result of clearing a single source.
type Outcome struct {
	Success bool
	Reason  DegradeReason
	Err     error
}

// ClearResult combines the outcomes of clearing the local and remote sources.
type ClearResult struct {
	Local  Outcome
	Remote Outcome
}

// Success reports whether at least one side was cleared.
func (r ClearResult) Success() bool {
	return r.Local.Success || r.Remote.Success
}
