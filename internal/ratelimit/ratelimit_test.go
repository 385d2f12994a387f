package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiterZeroDelay(t *testing.T) {
	limiter := NewSimpleRateLimiter(0, 0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestSimpleRateLimiterSpacesActions(t *testing.T) {
	limiter := NewSimpleRateLimiter(30*time.Millisecond, 30*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestSimpleRateLimiterCancelled(t *testing.T) {
	limiter := NewSimpleRateLimiter(time.Minute, time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

func TestAdaptiveRateLimiterBackoff(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(time.Second, 2*time.Second)

	for i := 0; i < 3; i++ {
		limiter.RecordError()
	}
	min, max := limiter.Delay()
	assert.Equal(t, 1500*time.Millisecond, min)
	assert.Equal(t, 3*time.Second, max)

	for i := 0; i < 6; i++ {
		limiter.RecordSuccess()
	}
	min, max = limiter.Delay()
	assert.InDelta(t, float64(1350*time.Millisecond), float64(min), float64(time.Microsecond))
	assert.InDelta(t, float64(2700*time.Millisecond), float64(max), float64(time.Microsecond))
}

func TestAdaptiveRateLimiterNeverDropsBelowBase(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(0, 0)

	for i := 0; i < 30; i++ {
		limiter.RecordError()
		limiter.RecordSuccess()
	}
	for i := 0; i < 12; i++ {
		limiter.RecordSuccess()
	}

	min, max := limiter.Delay()
	assert.Equal(t, time.Duration(0), min)
	assert.Equal(t, time.Duration(0), max)
}
