package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultWindow  = time.Hour
	defaultCeiling = 4900
	defaultPerSec  = 5.0
	defaultBurst   = 5
)

// RateGovernor enforces the provider's rolling request quota. It keeps a
// counter and a window-start timestamp; when the counter reaches the ceiling,
// Acquire blocks until the window resets. A token bucket in front smooths
// short bursts below the provider's per-second tolerance.
//
// One governor instance is shared by every outbound call the engine makes,
// including retries. All mutation happens under the mutex.
type RateGovernor struct {
	bucket  *rate.Limiter
	ceiling int
	window  time.Duration

	mu          sync.Mutex
	count       int
	windowStart time.Time
	nowFunc     func() time.Time // for testing
}

// GovernorOption configures the RateGovernor.
type GovernorOption func(*RateGovernor)

// WithGovernorNowFunc overrides the time function for testing.
func WithGovernorNowFunc(f func() time.Time) GovernorOption {
	return func(g *RateGovernor) {
		g.nowFunc = f
	}
}

// WithSmoothing overrides the per-second token bucket parameters.
func WithSmoothing(perSecond float64, burst int) GovernorOption {
	return func(g *RateGovernor) {
		g.bucket = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewRateGovernor creates a governor with the given window ceiling and
// duration. Zero values fall back to the hourly default quota.
func NewRateGovernor(ceiling int, window time.Duration, opts ...GovernorOption) *RateGovernor {
	if ceiling <= 0 {
		ceiling = defaultCeiling
	}
	if window <= 0 {
		window = defaultWindow
	}

	g := &RateGovernor{
		bucket:  rate.NewLimiter(rate.Limit(defaultPerSec), defaultBurst),
		ceiling: ceiling,
		window:  window,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.windowStart = g.nowFunc()
	return g
}

// Acquire blocks until a request slot is available or ctx is done. It must
// be called before every outbound request, retries included.
func (g *RateGovernor) Acquire(ctx context.Context) error {
	if err := g.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate smoothing wait: %w", err)
	}

	for {
		wait, ok := g.tryReserve()
		if ok {
			return nil
		}

		// Ceiling reached. Sleep out the remainder of the window; the
		// deadline on ctx is the operator's abort hatch.
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrRateLimitExceeded, ctx.Err())
		case <-timer.C:
		}
	}
}

// tryReserve increments the counter if the budget allows, resetting the
// window first if it has elapsed. On a full window it returns the duration
// until the window resets.
func (g *RateGovernor) tryReserve() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()
	if now.Sub(g.windowStart) >= g.window {
		g.count = 0
		g.windowStart = now
	}

	if g.count < g.ceiling {
		g.count++
		return 0, true
	}

	return g.windowStart.Add(g.window).Sub(now), false
}

// Used returns the number of requests consumed in the current window.
func (g *RateGovernor) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Ceiling returns the configured window request ceiling.
func (g *RateGovernor) Ceiling() int {
	return g.ceiling
}

// Remaining returns the requests left in the current window.
func (g *RateGovernor) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if left := g.ceiling - g.count; left > 0 {
		return left
	}
	return 0
}

// ResetAt returns when the current window expires and the counter resets.
func (g *RateGovernor) ResetAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.windowStart.Add(g.window)
}
