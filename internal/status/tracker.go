package status

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/zensor/internal/domain/sample"
)

// Snapshot is a point-in-time view of the node.
type Snapshot struct {
	// SessionID identifies the node run.
	SessionID string
	// StartedAt is the wall-clock time the node started.
	StartedAt time.Time
	// Last is the most recent iteration, nil before the first one.
	Last *sample.Iteration
	// LastSample is the most recent successful sample.
	LastSample *sample.Sample
	// Samples counts successful reads.
	Samples uint64
	// Failures counts failed reads.
	Failures uint64
	// Alarms counts buzzer pulses.
	Alarms uint64
}

// Tracker records iterations. It is the only state shared with the status
// endpoint goroutines.
type Tracker struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewTracker returns a tracker for the given run.
func NewTracker(sessionID string, startedAt time.Time) *Tracker {
	return &Tracker{
		snapshot: Snapshot{
			SessionID: sessionID,
			StartedAt: startedAt,
		},
	}
}

// Publish implements telemetry.Sink.
func (t *Tracker) Publish(_ context.Context, it *sample.Iteration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snapshot.Last
	t.snapshot.Last = it.Clone()

	if it.Sample == nil {
		// A failed read leaves the actuators alone.
		if prev != nil && prev.Hot {
			t.snapshot.Last.Hot = true
		}

		t.snapshot.Failures++

		return nil
	}

	t.snapshot.Samples++
	t.snapshot.LastSample = it.Sample.Clone()

	if it.Buzzed {
		t.snapshot.Alarms++
	}

	return nil
}

// Close implements telemetry.Sink.
func (t *Tracker) Close() error {
	return nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := t.snapshot
	result.Last = t.snapshot.Last.Clone()
	result.LastSample = t.snapshot.LastSample.Clone()

	return result
}
