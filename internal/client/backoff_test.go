package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffSucceedsAfterRetries(t *testing.T) {
	b := &backoff{initial: time.Millisecond, attempts: 5}

	calls := 0
	err := b.do(context.Background(), func(attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffExhaustsAttempts(t *testing.T) {
	b := &backoff{initial: time.Millisecond, attempts: 3}

	sentinel := errors.New("dial refused")
	calls := 0
	err := b.do(context.Background(), func(int) error {
		calls++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "max retries (3)")
	assert.Equal(t, 3, calls)
}

func TestBackoffStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &backoff{initial: time.Hour, attempts: 0}
	err := b.do(ctx, func(int) error {
		return errors.New("still failing")
	})

	require.ErrorIs(t, err, context.Canceled)
}
