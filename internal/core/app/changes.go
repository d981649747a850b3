package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/shared/observability"
)

const (
	changeBatchSize = 256
	changeBatchWait = 250 * time.Millisecond
)

// QueueChanges returns a watcher callback that feeds q.
func QueueChanges(q ports.ChangeQueue) func([]string) {
	return func(paths []string) {
		for _, p := range paths {
			if q.Enqueue(p) == ports.EnqueueDropped {
				observability.WatchChangesDroppedTotal.Inc()
			}
		}
	}
}

// ConsumeChanges drains q until ctx ends or q is closed. Batches go through
// Reanalyze; if any path was dropped the next pass is a full Analyze.
func (a *App) ConsumeChanges(ctx context.Context, q ports.ChangeQueue) error {
	for {
		batch, err := q.DequeueBatch(ctx, changeBatchSize, changeBatchWait)
		if overflow := q.Overflowed(); overflow {
			slog.Warn("change queue overflowed; running full analysis")
			if _, runErr := a.Analyze(ctx); runErr != nil && ctx.Err() == nil {
				slog.Error("re-analysis failed", "error", runErr)
			}
		} else if len(batch) > 0 {
			slog.Debug("files changed", "count", len(batch))
			if _, runErr := a.Reanalyze(ctx, batch); runErr != nil && ctx.Err() == nil {
				slog.Error("re-analysis failed", "error", runErr)
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		default:
			return err
		}
	}
}
