// Package client implements exponential backoff pacing for reconnect
// attempts.
package client

import (
	"context"
	"fmt"
	"time"
)

// backoff retries an operation with exponentially growing delays. Zero fields
// select the defaults; attempts of 0 means retry until the context ends.
type backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	attempts   int
}

// do executes fn repeatedly until it succeeds or the retry budget (attempts /
// context) is exhausted. The attempt parameter passed to fn is 1-based.
func (b *backoff) do(ctx context.Context, fn func(attempt int) error) error {
	delay := b.initial
	if delay <= 0 {
		delay = time.Second
	}
	multiplier := b.multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	maxDelay := b.max
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		if b.attempts > 0 && attempt >= b.attempts {
			return fmt.Errorf("max retries (%d) exceeded: %w", b.attempts, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
