package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("all attempts failed")

// RetryConfig controls Retry.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig is three attempts, 2s apart and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry runs operation until it succeeds or the attempts run out, sleeping
// between attempts with exponential backoff. There is no sleep after the
// final attempt.
func Retry(ctx context.Context, cfg RetryConfig, sleep SleepFunc, logger *zap.Logger, operation func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("request succeeded after retry", zap.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err

		logger.Warn("request failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Error(err),
		)
		if attempt == cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("waiting to retry: %w", err)
		}
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
	}

	logger.Error("giving up", zap.Int("attempts", cfg.MaxAttempts))
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, cfg.MaxAttempts, lastErr)
}
