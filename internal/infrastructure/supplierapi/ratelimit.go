package supplierapi

import (
	"context"
	"sync"
	"time"
)

// RateGate enforces a minimum spacing between outbound calls to one
// supplier. Callers block until their slot; waiting honors context
// cancellation. FIFO within one gate comes from the mutex hand-off.
type RateGate struct {
	mu       sync.Mutex
	spacing  time.Duration
	lastSent time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateGate creates a gate with the given minimum spacing
func NewRateGate(spacing time.Duration) *RateGate {
	return &RateGate{
		spacing: spacing,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// WithClock replaces the time source and sleeper, for tests
func (g *RateGate) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *RateGate {
	g.now = now
	g.sleep = sleep
	return g
}

// Wait blocks until the minimum spacing since the previous call has elapsed,
// then claims the slot. Returns the context's error when cancelled while
// waiting; the slot is not claimed in that case.
func (g *RateGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastSent.IsZero() {
		elapsed := g.now().Sub(g.lastSent)
		if remaining := g.spacing - elapsed; remaining > 0 {
			if err := g.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	g.lastSent = g.now()
	return nil
}

// sleepContext sleeps for d or until ctx is done, whichever comes first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
