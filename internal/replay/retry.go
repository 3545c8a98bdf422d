package replay

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retry runs fn until it succeeds, the retries run out or ctx ends. The delay
// doubles after every failed attempt.
func (r *Replayer) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	maxRetries := r.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := r.cfg.RetryBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		r.logger.Warn("retrying", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
