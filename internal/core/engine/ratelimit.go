package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidRateLimit is returned when requests per minute is not positive.
var ErrInvalidRateLimit = errors.New("requests per minute must be positive")

// Gate spaces outbound calls so that no two permits are granted closer
// together than one minute divided by the configured rate.
//
// The lock is held while sleeping, so concurrent callers queue behind the
// sleeper and each observes the timestamp it left behind.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	primed   bool

	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewGate creates a gate for rpm requests per minute.
func NewGate(rpm int) (*Gate, error) {
	if rpm <= 0 {
		return nil, ErrInvalidRateLimit
	}
	return &Gate{interval: time.Minute / time.Duration(rpm)}, nil
}

// Interval is the minimum spacing between permits.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Acquire blocks until the caller may issue one call and returns how long
// it waited. If ctx ends while waiting no permit is recorded.
func (g *Gate) Acquire(ctx context.Context) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var waited time.Duration
	if g.primed {
		if wait := g.interval - g.now().Sub(g.last); wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				return 0, err
			}
			waited = wait
		}
	} else if err := ctx.Err(); err != nil {
		return 0, err
	}

	g.last = g.now()
	g.primed = true
	return waited, nil
}

func (g *Gate) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now()
}

func (g *Gate) sleep(ctx context.Context, d time.Duration) error {
	if g.Sleep != nil {
		return g.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
