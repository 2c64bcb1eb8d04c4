package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReal_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Real{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReal_SleepZero(t *testing.T) {
	require.NoError(t, Real{}.Sleep(context.Background(), 0))
}

func TestReal_SleepElapses(t *testing.T) {
	start := time.Now()
	require.NoError(t, Real{}.Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestManual_SleepAdvances(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)

	require.NoError(t, m.Sleep(context.Background(), 1500*time.Millisecond))
	require.NoError(t, m.Sleep(context.Background(), time.Second))

	assert.Equal(t, start.Add(2500*time.Millisecond), m.Now())
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, time.Second}, m.Slept())
}

func TestManual_SleepCanceled(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.Sleep(ctx, time.Second), context.Canceled)
	assert.Empty(t, m.Slept())
	assert.Equal(t, time.Unix(0, 0), m.Now())
}

func TestManual_OnSleepHook(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var seen time.Duration
	m.OnSleep = func(_ context.Context, d time.Duration) error {
		seen = d
		return context.DeadlineExceeded
	}

	err := m.Sleep(context.Background(), 3*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3*time.Second, seen)
}

func TestManual_SetAndAdvance(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	m.Set(time.Unix(100, 0))
	m.Advance(time.Minute)
	assert.Equal(t, time.Unix(160, 0), m.Now())
}
