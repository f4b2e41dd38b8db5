package timeutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockNow(t *testing.T) {
	before := time.Now()
	now := RealClock{}.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestSleepCompletes(t *testing.T) {
	start := time.Now()
	err := Sleep(context.Background(), RealClock{}, 10*time.Millisecond)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, RealClock{}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestSleepZeroDuration(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), RealClock{}, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, RealClock{}, 0), context.Canceled)
}
