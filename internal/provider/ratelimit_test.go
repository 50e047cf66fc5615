package provider_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/catalog-sync/internal/provider"
)

func TestRateGovernor_AcquireWithinBudget(t *testing.T) {
	t.Parallel()

	g := provider.NewRateGovernor(
		10, time.Hour,
		provider.WithSmoothing(1000, 100),
	)

	for range 10 {
		require.NoError(t, g.Acquire(context.Background()))
	}

	assert.Equal(t, 10, g.Used())
	assert.Equal(t, 0, g.Remaining())
}

func TestRateGovernor_Counters(t *testing.T) {
	t.Parallel()

	g := provider.NewRateGovernor(
		100, time.Hour,
		provider.WithSmoothing(1000, 100),
	)

	assert.Equal(t, 100, g.Ceiling())
	assert.Equal(t, 0, g.Used())
	assert.Equal(t, 100, g.Remaining())

	require.NoError(t, g.Acquire(context.Background()))
	require.NoError(t, g.Acquire(context.Background()))

	assert.Equal(t, 2, g.Used())
	assert.Equal(t, 98, g.Remaining())
}

func TestRateGovernor_BlocksUntilWindowReset(t *testing.T) {
	t.Parallel()

	// A tiny real window: the third acquire has to sit out the remainder.
	const window = 150 * time.Millisecond

	g := provider.NewRateGovernor(
		2, window,
		provider.WithSmoothing(1000, 100),
	)

	require.NoError(t, g.Acquire(context.Background()))
	require.NoError(t, g.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, g.Acquire(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond,
		"third acquire should block until the window resets")
	assert.Equal(t, 1, g.Used(), "counter resets with the window")
}

func TestRateGovernor_WindowReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	currentTime := now

	g := provider.NewRateGovernor(
		5, time.Hour,
		provider.WithSmoothing(1000, 100),
		provider.WithGovernorNowFunc(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return currentTime
		}),
	)

	require.NoError(t, g.Acquire(context.Background()))
	require.NoError(t, g.Acquire(context.Background()))
	assert.Equal(t, 2, g.Used())
	assert.Equal(t, now.Add(time.Hour), g.ResetAt())

	// Advance past the window.
	mu.Lock()
	currentTime = now.Add(61 * time.Minute)
	mu.Unlock()

	require.NoError(t, g.Acquire(context.Background()))
	assert.Equal(t, 1, g.Used(), "counter should reset on next acquire")
}

func TestRateGovernor_ContextCancelledWhileBlocked(t *testing.T) {
	t.Parallel()

	g := provider.NewRateGovernor(
		1, time.Hour,
		provider.WithSmoothing(1000, 100),
	)

	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := g.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrRateLimitExceeded)
}

func TestRateGovernor_SmoothingCancel(t *testing.T) {
	t.Parallel()

	// 1 per 10 seconds, burst 1: the second acquire waits in the bucket.
	g := provider.NewRateGovernor(
		100, time.Hour,
		provider.WithSmoothing(0.1, 1),
	)

	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Acquire(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate smoothing wait")
}

func TestRateGovernor_Defaults(t *testing.T) {
	t.Parallel()

	g := provider.NewRateGovernor(0, 0)

	assert.Equal(t, 4900, g.Ceiling())
	assert.Equal(t, 4900, g.Remaining())
}
