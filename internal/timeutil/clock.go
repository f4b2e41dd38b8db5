// Package timeutil provides a testable abstraction over the clock and the
// timers the capture loop waits on.
package timeutil

import (
	"context"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTimer creates a Timer that fires once after d.
	NewTimer(d time.Duration) Timer
}

// Timer represents a single event timer.
type Timer interface {
	// C returns the channel on which the time is delivered.
	C() <-chan time.Time

	// Stop prevents the Timer from firing.
	Stop() bool
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTimer creates a new Timer.
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) C() <-chan time.Time { return t.timer.C }
func (t *realTimer) Stop() bool          { return t.timer.Stop() }

// Sleep waits for d on clock or until ctx is done, whichever comes first.
// It returns ctx.Err() if the wait was cut short.
func Sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
