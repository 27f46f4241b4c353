package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"streamlink/pkg/errors"
)

// Config holds retry configuration
type Config struct {
	Enabled      bool          // Enable/disable retry logic
	MaxAttempts  int           // Total number of attempts (first call included)
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Maximum delay between retries
	Multiplier   float64       // Exponential backoff multiplier (typically 2.0)
	Jitter       bool          // Add jitter to backoff delays
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// Retry executes a function with exponential backoff. Permanent failures
// (errors.IsRetryable == false) abort immediately; context cancellation is
// observed before each attempt and during backoff sleeps.
func Retry(ctx context.Context, cfg Config, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes a function that returns a result with exponential
// backoff retry logic.
func RetryWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T

	if !cfg.Enabled {
		return fn()
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !errors.IsRetryable(err) {
			return zero, err
		}

		if attempt == attempts-1 {
			break
		}

		delay := calculateDelay(cfg, attempt)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled during wait: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("max attempts (%d) exceeded: %w", attempts, lastErr)
}

// calculateDelay calculates the delay for exponential backoff
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))

	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	duration := time.Duration(delay)

	// Simplified deterministic jitter: shave a quarter so concurrent sessions
	// do not retry in lockstep.
	if cfg.Jitter {
		jitter := duration / 4
		duration = duration - jitter + time.Duration(float64(jitter*2)*0.5)
	}

	return duration
}
