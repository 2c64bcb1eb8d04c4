// Package clock provides the time source for the flow engine and the
// simulated network latency between flow stages.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock provides time-related functionality that can be replaced in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep suspends for d or until ctx is done, whichever comes first.
	// It returns ctx.Err() when interrupted.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real implements Clock using system time and timers.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// Sleep waits on a timer or the context.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
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

// Manual implements Clock with a hand-driven time. Sleep advances the clock
// by d and returns immediately, so whole flows run without waiting.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration

	// OnSleep, when set, runs after the clock has advanced. Tests use it to
	// park a flow at a suspend point.
	OnSleep func(ctx context.Context, d time.Duration) error
}

// NewManual creates a Manual clock starting at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep advances the clock by d.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.slept = append(m.slept, d)
	hook := m.OnSleep
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, d)
	}
	return nil
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance adds d to the clock.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Slept returns every duration passed to Sleep so far.
func (m *Manual) Slept() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.slept...)
}
