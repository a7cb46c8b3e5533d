package healthcheck

import (
	"context"
	"log/slog"
	"time"
)

// Refresher runs one full sampling and redistribution cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Run refreshes the fleet every interval until ctx is cancelled. A
// non-positive interval disables background sampling and Run returns at once.
func Run(
	ctx context.Context,
	refresher Refresher,
	interval time.Duration,
	logger *slog.Logger,
) {
	if interval <= 0 {
		logger.Info("Background health sampling disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Background health sampling started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Background health sampling stopped")
			return

		case <-ticker.C:
			if err := refresher.Refresh(ctx); err != nil {
				logger.Error("Health sampling pass failed", slog.Any("err", err))
			}
		}
	}
}
