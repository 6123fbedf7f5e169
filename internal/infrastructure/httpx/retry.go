// Package httpx holds transport-level helpers shared by the external API
// clients: a generic retry loop with optional exponential backoff, used by
// PriceClient to ride out transient provider failures.
package httpx

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig controls retry behaviour for an external call.
type RetryConfig struct {
	Attempts    int
	Delay       time.Duration
	Exponential bool
	// Retryable reports whether a given failure should be retried. A nil
	// Retryable retries every error, which is correct for callers whose fn
	// only ever returns transient errors.
	Retryable func(error) bool
}

func (cfg RetryConfig) normalize() RetryConfig {
	normalized := cfg
	if normalized.Attempts <= 0 {
		normalized.Attempts = 3
	}
	if normalized.Delay <= 0 {
		normalized.Delay = 250 * time.Millisecond
	}
	return normalized
}

func (cfg RetryConfig) delayFor(attempt int) time.Duration {
	if !cfg.Exponential {
		return cfg.Delay
	}
	delay := cfg.Delay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Retry executes fn with linear or exponential back-off and returns the
// result of the first successful attempt, or the final error.
func Retry[T any](ctx context.Context, logger *slog.Logger, cfg RetryConfig, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	normalized := cfg.normalize()

	for attempt := 1; attempt <= normalized.Attempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			if logger != nil {
				logger.Debug("operation succeeded", slog.String("operation", operation), slog.Int("attempt", attempt))
			}
			return result, nil
		}

		if logger != nil {
			logger.Warn("operation failed",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == normalized.Attempts {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(normalized.delayFor(attempt)):
		}
	}

	return zero, context.Canceled
}
