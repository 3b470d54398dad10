package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiter_Wait(t *testing.T) {
	ctx := context.Background()
	limiter := NewSimpleRateLimiter(20*time.Millisecond, 20*time.Millisecond)

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.Less(t, time.Since(start), 20*time.Millisecond, "first wait should not block")

	start = time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestSimpleRateLimiter_Cancelled(t *testing.T) {
	limiter := NewSimpleRateLimiter(time.Minute, time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

func TestAdaptiveRateLimiter(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(time.Second, 2*time.Second)

	for i := 0; i < 3; i++ {
		limiter.RecordError()
	}
	lo, hi := limiter.Delays()
	assert.Equal(t, 1500*time.Millisecond, lo)
	assert.Equal(t, 3*time.Second, hi)

	for i := 0; i < 30; i++ {
		limiter.RecordSuccess()
	}
	lo, _ = limiter.Delays()
	assert.Equal(t, time.Second, lo, "successes never go below the initial minimum")
}
