package clock

import (
	"context"
	"sync"
	"time"
)

// Clock measures uptime and blocks the caller for fixed durations.
type Clock interface {
	// Elapsed returns the time since the clock started.
	Elapsed() time.Duration
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Monotonic is a Clock backed by the runtime monotonic clock.
type Monotonic struct {
	start time.Time
}

// NewMonotonic starts a clock at the current instant.
func NewMonotonic() *Monotonic {
	return &Monotonic{
		start: time.Now(),
	}
}

// Elapsed implements Clock.
func (m *Monotonic) Elapsed() time.Duration {
	return time.Since(m.start)
}

// Sleep implements Clock.
func (m *Monotonic) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Manual is a Clock that only moves when told to. Sleep advances it instantly.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

// NewManual returns a manual clock positioned at start.
func NewManual(start time.Duration) *Manual {
	return &Manual{
		now: start,
	}
}

// Elapsed implements Clock.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Sleep implements Clock. It records d and advances the clock by it.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.now += d
	m.sleeps = append(m.sleeps, d)
	hook := m.onSleep
	m.mu.Unlock()

	if hook != nil {
		hook(d)
	}

	return nil
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now += d
}

// Sleeps returns every duration passed to Sleep, in order.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]time.Duration(nil), m.sleeps...)
}

// OnSleep registers a hook called after each Sleep, outside the lock.
func (m *Manual) OnSleep(hook func(d time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onSleep = hook
}
