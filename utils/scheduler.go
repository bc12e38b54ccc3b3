package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartPeriodic launches a background goroutine running job every interval until ctx ends.
// It is best-effort: failures are logged and the next tick tries again.
func StartPeriodic(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		// first run happens one interval after boot
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				Logger.Info("periodic job stopped", zap.String("job", name))
				return
			case <-ticker.C:
				start := time.Now()
				if err := job(ctx); err != nil {
					Logger.Warn("periodic job failed", zap.String("job", name), zap.Error(err))
					continue
				}
				Logger.Debug("periodic job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
			}
		}
	}()
}
