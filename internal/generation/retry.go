package generation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nextudy/nextudy-api/internal/platform/logger"
)

// RetryPolicy is a fixed-delay retry policy applied to rate-limited calls.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// WithRateLimitRetry calls fn and, while it fails with ErrRateLimited, waits
// Delay and tries again, up to MaxRetries extra attempts. Any other error
// is returned immediately. Cancelling ctx stops the wait.
func WithRateLimitRetry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt >= p.MaxRetries {
			return err
		}

		log.Warn("language model rate limited, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", p.MaxRetries),
			slog.Duration("delay", p.Delay))

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
