// Package retry provides exponential backoff retry logic for external calls.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/habit-stake/internal/logging"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts  int           // Maximum number of attempts
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Ceiling on the delay between retries
	Multiplier   float64       // Multiplier for exponential backoff
}

// DefaultConfig returns a default retry configuration.
// Pattern: 1s, 2s, 4s, capped at 30s.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Func is a function that can be retried
type Func func(ctx context.Context, attempt int) error

// WithExponentialBackoff executes fn with exponential backoff, returning the
// last error if every attempt fails.
func WithExponentialBackoff(ctx context.Context, config *Config, fn Func) error {
	logger := logging.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				logger.WithField("attempts", attempt).Info("operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if attempt >= config.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := backoffDelay(config, attempt)
		logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Warn("operation failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

func backoffDelay(config *Config, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
