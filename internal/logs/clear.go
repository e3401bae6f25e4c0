package logs

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/narvanalabs/request-logs/internal/models"
	applog "github.com/narvanalabs/request-logs/pkg/logger"
)

// LocalClearer deletes the local log.
type LocalClearer interface {
	Clear(ctx context.Context) error
}

// RemoteClearer deletes the companion's log.
type RemoteClearer interface {
	Clear(ctx context.Context, requestHost string) models.Outcome
}

// ClearCoordinator clears both sources. Each side is attempted regardless of the other.
type ClearCoordinator struct {
	local  LocalClearer
	remote RemoteClearer
	logger *slog.Logger
}

// NewClearCoordinator creates a clear coordinator.
func NewClearCoordinator(local LocalClearer, remote RemoteClearer, logger *slog.Logger) *ClearCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClearCoordinator{
		local:  local,
		remote: remote,
		logger: logger.With("component", "clear"),
	}
}

// ClearAll deletes the local file and asks the companion to delete its logs.
// The result is successful when at least one side succeeded.
func (c *ClearCoordinator) ClearAll(ctx context.Context, requestHost string) models.ClearResult {
	log := applog.FromContext(ctx, c.logger)

	var res models.ClearResult
	var g errgroup.Group
	g.Go(func() error {
		if err := c.local.Clear(ctx); err != nil {
			log.Error("failed to clear logs", "error", err)
			res.Local = models.Outcome{Reason: models.ReasonIO, Err: err}
			return nil
		}
		res.Local = models.Outcome{Success: true}
		return nil
	})
	g.Go(func() error {
		res.Remote = c.remote.Clear(ctx, requestHost)
		return nil
	})
	_ = g.Wait()

	log.Info("cleared logs",
		"local", res.Local.Success,
		"remote", res.Remote.Success,
		"remote_reason", string(res.Remote.Reason),
	)
	return res
}
