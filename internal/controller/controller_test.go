package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/oshokin/zensor/internal/clock"
)

var errTestPin = errors.New("test pin error")

// edge is one level written to a pin at a clock reading.
type edge struct {
	level gpio.Level
	at    time.Duration
}

// recordingPin remembers every level written to it.
type recordingPin struct {
	*gpiotest.Pin

	clock *clock.Manual
	edges []edge
	err   error
}

// Out records the level and forwards it to the test pin.
func (p *recordingPin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}

	p.edges = append(p.edges, edge{level: l, at: p.clock.Elapsed()})

	return p.Pin.Out(l)
}

// highs returns the clock readings of every High write.
func (p *recordingPin) highs() []time.Duration {
	var out []time.Duration

	for _, e := range p.edges {
		if e.level == gpio.High {
			out = append(out, e.at)
		}
	}

	return out
}

// rig is a controller wired to recording pins and a manual clock.
type rig struct {
	clock      *clock.Manual
	red, green *recordingPin
	buzzer     *recordingPin
	ctrl       *Controller
}

// newRig builds a controller at the given start time.
func newRig(start time.Duration) *rig {
	clk := clock.NewManual(start)
	pin := func(name string, num int) *recordingPin {
		return &recordingPin{Pin: &gpiotest.Pin{N: name, Num: num}, clock: clk}
	}

	r := &rig{
		clock:  clk,
		red:    pin("RED", 3),
		green:  pin("GREEN", 2),
		buzzer: pin("BUZZER", 4),
	}

	r.ctrl = New(Actuators{Red: r.red, Green: r.green, Buzzer: r.buzzer}, clk)

	return r
}

// levels returns the current red, green and buzzer levels.
func (r *rig) levels() (gpio.Level, gpio.Level, gpio.Level) {
	return r.red.Read(), r.green.Read(), r.buzzer.Read()
}

// TestDecide covers the pure actuator policy.
func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		temperature uint8
		now, last   time.Duration
		fired       bool
		want        Decision
	}{
		{"cold", 20, 0, 0, false, Decision{State: Cold}},
		{"threshold is cold", 30, 0, 0, false, Decision{State: Cold}},
		{"first alarm", 31, 0, 0, false, Decision{State: Hot, Buzz: true}},
		{"cooldown", 31, 9999 * time.Millisecond, 0, true, Decision{State: Hot}},
		{"cooldown elapsed", 31, 10 * time.Second, 0, true, Decision{State: Hot, Buzz: true}},
		{"cold ignores timer", 10, time.Hour, 0, true, Decision{State: Cold}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Decide(tc.temperature, tc.now, tc.last, tc.fired))
		})
	}
}

// TestApply_FirstHotSamplePulsesOnce verifies a single 1000 ms pulse.
func TestApply_FirstHotSamplePulsesOnce(t *testing.T) {
	t.Parallel()

	r := newRig(3 * time.Second)

	decision, err := r.ctrl.Apply(context.Background(), 31)
	require.NoError(t, err)
	require.Equal(t, Decision{State: Hot, Buzz: true}, decision)
	require.Equal(t, Hot, r.ctrl.State())

	red, green, buzzer := r.levels()
	require.Equal(t, gpio.High, red)
	require.Equal(t, gpio.Low, green)
	require.Equal(t, gpio.Low, buzzer)

	require.Equal(t, []time.Duration{3 * time.Second}, r.buzzer.highs())
	require.Equal(t, []time.Duration{PulseDuration}, r.clock.Sleeps())

	// The buzzer is released exactly one pulse after it was raised.
	last := r.buzzer.edges[len(r.buzzer.edges)-1]
	require.Equal(t, gpio.Low, last.level)
	require.Equal(t, 3*time.Second+PulseDuration, last.at)

	at, fired := r.ctrl.LastActivation()
	require.True(t, fired)
	require.Equal(t, 3*time.Second, at)
}

// TestApply_CooldownSuppressesSecondPulse checks two hot samples inside the interval.
func TestApply_CooldownSuppressesSecondPulse(t *testing.T) {
	t.Parallel()

	r := newRig(0)

	_, err := r.ctrl.Apply(context.Background(), 31)
	require.NoError(t, err)

	r.clock.Advance(SamplePause)

	decision, err := r.ctrl.Apply(context.Background(), 31)
	require.NoError(t, err)
	require.False(t, decision.Buzz)
	require.Len(t, r.buzzer.highs(), 1)

	// Once the interval has passed since the pulse, the alarm sounds again.
	r.clock.Advance(AlarmInterval)

	decision, err = r.ctrl.Apply(context.Background(), 35)
	require.NoError(t, err)
	require.True(t, decision.Buzz)
	require.Len(t, r.buzzer.highs(), 2)
}

// TestApply_ColdKeepsAlarmTimer verifies that COLD does not reset the cooldown.
func TestApply_ColdKeepsAlarmTimer(t *testing.T) {
	t.Parallel()

	r := newRig(0)

	_, err := r.ctrl.Apply(context.Background(), 40)
	require.NoError(t, err)

	r.clock.Advance(2 * time.Second)

	decision, err := r.ctrl.Apply(context.Background(), 25)
	require.NoError(t, err)
	require.Equal(t, Decision{State: Cold}, decision)

	red, green, buzzer := r.levels()
	require.Equal(t, gpio.Low, red)
	require.Equal(t, gpio.High, green)
	require.Equal(t, gpio.Low, buzzer)

	r.clock.Advance(2 * time.Second)

	decision, err = r.ctrl.Apply(context.Background(), 40)
	require.NoError(t, err)
	require.Equal(t, Decision{State: Hot}, decision)
	require.Len(t, r.buzzer.highs(), 1)
}

// TestApply_ThresholdIsCold pins the strict comparison.
func TestApply_ThresholdIsCold(t *testing.T) {
	t.Parallel()

	r := newRig(0)

	decision, err := r.ctrl.Apply(context.Background(), Threshold)
	require.NoError(t, err)
	require.Equal(t, Cold, decision.State)
	require.Empty(t, r.buzzer.highs())
	require.Empty(t, r.clock.Sleeps())
}

// TestApply_LEDsNeverBothOn checks the LED invariant across a temperature sweep.
func TestApply_LEDsNeverBothOn(t *testing.T) {
	t.Parallel()

	r := newRig(0)

	for _, temperature := range []uint8{10, 29, 30, 31, 45, 30, 31, 0} {
		_, err := r.ctrl.Apply(context.Background(), temperature)
		require.NoError(t, err)

		red, green, _ := r.levels()
		require.NotEqual(t, red, green, "temperature %d", temperature)

		r.clock.Advance(SamplePause)
	}
}

// TestApply_CancelledPulseReleasesBuzzer verifies the buzzer never stays high.
func TestApply_CancelledPulseReleasesBuzzer(t *testing.T) {
	t.Parallel()

	r := newRig(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ctrl.Apply(ctx, 31)
	require.ErrorIs(t, err, context.Canceled)

	_, _, buzzer := r.levels()
	require.Equal(t, gpio.Low, buzzer)
}

// TestApply_PinErrors verifies that write failures are returned.
func TestApply_PinErrors(t *testing.T) {
	t.Parallel()

	r := newRig(0)
	r.green.err = errTestPin

	_, err := r.ctrl.Apply(context.Background(), 20)
	require.ErrorIs(t, err, errTestPin)

	_, err = r.ctrl.Apply(context.Background(), 31)
	require.ErrorIs(t, err, errTestPin)
}

// TestOff drives every pin low.
func TestOff(t *testing.T) {
	t.Parallel()

	r := newRig(0)

	_, err := r.ctrl.Apply(context.Background(), 20)
	require.NoError(t, err)
	require.NoError(t, r.ctrl.Off())

	red, green, buzzer := r.levels()
	require.Equal(t, gpio.Low, red)
	require.Equal(t, gpio.Low, green)
	require.Equal(t, gpio.Low, buzzer)
	require.Equal(t, Idle, r.ctrl.State())
	require.Equal(t, "IDLE", Idle.String())
}
