package storage

import (
	"context"
	"errors"
	"log"
	"time"
)

// RetryConfig bounds ConnectWithRetry.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryConfig returns five attempts starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  5,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}
}

// ConnectWithRetry calls m.Connect until it succeeds, the attempts run out,
// or the error is not a connection error. The delay doubles after every
// failed attempt and is capped at MaxDelay.
func ConnectWithRetry(ctx context.Context, m Manager, cfg RetryConfig) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = m.Connect(ctx)
		if lastErr == nil {
			if attempt > 1 {
				log.Printf("Connected to %s after %d attempts", m.Kind(), attempt)
			}
			return nil
		}

		if !errors.Is(lastErr, ErrConnection) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		log.Printf("Connection to %s failed (attempt %d/%d), retrying in %v: %v",
			m.Kind(), attempt, attempts, delay, lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
