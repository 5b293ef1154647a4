package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRetriesExhausted is returned by [Retry] when every attempt failed.
var ErrRetriesExhausted = errors.New("resilience: retries exhausted")

// Default retry parameters.
const (
	defaultMaxRetries = 10
	defaultBackoff    = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
)

// RetryConfig tunes [Retry].
type RetryConfig struct {
	// Name labels log messages.
	Name string

	// MaxRetries is the maximum number of attempts. Default: 10.
	MaxRetries int

	// Backoff is the wait after the first failed attempt. It doubles after
	// every further failure up to MaxBackoff. Default: 1s.
	Backoff time.Duration

	// MaxBackoff caps the wait between attempts. Default: 30s.
	MaxBackoff time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return c
}

// Retry calls fn until it succeeds, backing off exponentially between
// attempts. It returns nil on success, ctx.Err() when ctx ends first and an
// error wrapping [ErrRetriesExhausted] and the last failure otherwise.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	backoff := cfg.Backoff

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Info("retry succeeded", "name", cfg.Name, "attempt", attempt)
			}
			return nil
		}
		slog.Warn("retry attempt failed",
			"name", cfg.Name,
			"attempt", attempt,
			"max_retries", cfg.MaxRetries,
			"backoff", backoff,
			"err", lastErr,
		)
		if attempt == cfg.MaxRetries {
			break
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	slog.Error("giving up after max retries", "name", cfg.Name, "max_retries", cfg.MaxRetries)
	return fmt.Errorf("%w: %s: %w", ErrRetriesExhausted, cfg.Name, lastErr)
}
