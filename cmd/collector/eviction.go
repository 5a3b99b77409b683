package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/repo"
)

const evictionInterval = 6 * time.Hour

// evictionLoop drops ticks older than the retention window. Status stays
// derivable as long as each website keeps reporting within the window.
func evictionLoop(ctx context.Context, log *zap.Logger, ticks repo.TickStore, retentionDays int) {
	t := time.NewTicker(evictionInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		n, err := ticks.EvictOlderThan(ctx, cutoff)
		if err != nil {
			log.Warn("eviction_error", zap.Error(err))
			continue
		}
		if n > 0 {
			log.Info("eviction_done",
				zap.Int64("deleted", n),
				zap.Int("retention_days", retentionDays),
			)
		}
	}
}
