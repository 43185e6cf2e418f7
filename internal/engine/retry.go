package engine

import (
	"context"
	"time"

	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

const (
	defaultRetryAttempts = 4
	defaultRetryBase     = 250 * time.Millisecond
	retryBackoffCap      = 5 * time.Second
)

// withRetry runs op, retrying transient failures with exponential backoff.
// Non-transient errors return immediately; the last error returns once
// attempts are exhausted.
func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, base time.Duration, op func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if base <= 0 {
		base = defaultRetryBase
	}

	var err error
	delay := base
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts {
			return err
		}
		log.Warn("transient failure, backing off",
			"op", name,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > retryBackoffCap {
			delay = retryBackoffCap
		}
	}
	return err
}
