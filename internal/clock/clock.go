// Package clock abstracts the wall clock so that rate-limit spacing, retry
// backoff and sync budgets can be driven by a fake in tests.
package clock

import (
	"context"
	"time"
)

// Clock tells the time and blocks the caller.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d, returning ctx.Err() early if ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the system clock.
var Real Clock = realClock{}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
