package logs

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/narvanalabs/request-logs/internal/models"
	"github.com/narvanalabs/request-logs/pkg/config"
	applog "github.com/narvanalabs/request-logs/pkg/logger"
)

// FileReader reads a window of the local log.
type FileReader interface {
	Read(ctx context.Context, limit, offset int) models.SourceResult
}

// RemoteFetcher reads a window of the companion's log.
type RemoteFetcher interface {
	Fetch(ctx context.Context, limit, offset int, requestHost string) models.SourceResult
}

// Listing is a merged window together with the per-source results it was built from.
type Listing struct {
	models.LogWindow
	File   models.SourceResult
	Remote models.SourceResult
}

// Aggregator merges the file and remote sources into one ordered, deduplicated window.
type Aggregator struct {
	file   FileReader
	remote RemoteFetcher
	mode   string
	logger *slog.Logger
}

// NewAggregator creates an aggregator. mode is config.PaginationOverfetch or
// config.PaginationWindow; anything else is treated as overfetch.
func NewAggregator(file FileReader, remote RemoteFetcher, mode string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		file:   file,
		remote: remote,
		mode:   mode,
		logger: logger.With("component", "aggregator"),
	}
}

// List reads both sources concurrently, merges them newest first, drops duplicate
// (timestamp, endpoint) pairs and returns the requested window.
//
// In window mode each source is asked for the caller's window directly, which can
// under-fill pages past the first. Overfetch mode asks each source for offset+limit
// entries from the start instead. A companion serves at most MaxRemoteWindow entries
// per request, so windows ending beyond that are listed in window mode.
// Total is the sum of the source totals in both modes.
func (a *Aggregator) List(ctx context.Context, p models.Pagination, requestHost string) *Listing {
	limit, offset := p.Limit, p.Offset
	if a.overfetch(p) {
		limit, offset = p.End(), 0
	}

	var fileRes, remoteRes models.SourceResult
	var g errgroup.Group
	g.Go(func() error {
		fileRes = a.file.Read(ctx, limit, offset)
		return nil
	})
	g.Go(func() error {
		remoteRes = a.remote.Fetch(ctx, limit, offset, requestHost)
		return nil
	})
	_ = g.Wait()

	merged := Merge(fileRes.Entries, remoteRes.Entries)

	applog.FromContext(ctx, a.logger).Debug("merged log sources",
		"file", fileRes.String(),
		"remote", remoteRes.String(),
		"merged", len(merged),
	)

	return &Listing{
		LogWindow: models.LogWindow{
			Items:  p.Slice(merged),
			Total:  fileRes.Total + remoteRes.Total,
			Limit:  p.Limit,
			Offset: p.Offset,
		},
		File:   fileRes,
		Remote: remoteRes,
	}
}

func (a *Aggregator) overfetch(p models.Pagination) bool {
	return a.mode != config.PaginationWindow && p.End() <= MaxRemoteWindow
}

// Merge concatenates the sources in order, sorts by descending timestamp and keeps
// the first entry for each (timestamp, endpoint) pair. Unparsable timestamps sort last.
func Merge(sources ...[]models.LogEntry) []models.LogEntry {
	var n int
	for _, s := range sources {
		n += len(s)
	}

	combined := make([]models.LogEntry, 0, n)
	for _, s := range sources {
		combined = append(combined, s...)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Time().After(combined[j].Time())
	})

	seen := make(map[models.EntryKey]struct{}, len(combined))
	deduped := combined[:0]
	for _, entry := range combined {
		key := entry.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, entry)
	}
	return deduped
}
