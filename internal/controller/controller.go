package controller

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/oshokin/zensor/internal/clock"
	"github.com/oshokin/zensor/internal/logger"
)

const (
	// Threshold is the highest temperature, in degrees Celsius, still considered COLD.
	Threshold = 30
	// AlarmInterval is the minimum time between two buzzer pulses.
	AlarmInterval = 10 * time.Second
	// PulseDuration is how long the buzzer sounds.
	PulseDuration = time.Second
	// SamplePause is the pause after each iteration, matching the DHT11 1 Hz rate.
	SamplePause = time.Second
)

// State is the controller state.
type State int

const (
	// Idle is the state before the first successful sample. All pins are low.
	Idle State = iota
	// Cold means green LED on, red LED off.
	Cold
	// Hot means red LED on, green LED off.
	Hot
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Cold:
		return "COLD"
	case Hot:
		return "HOT"
	default:
		return "IDLE"
	}
}

// Decision is the outcome of the actuator policy for one sample.
type Decision struct {
	// State is the state entered for this sample.
	State State
	// Buzz reports whether the buzzer must pulse now.
	Buzz bool
}

// Decide applies the actuator policy. fired reports whether the buzzer has ever
// pulsed; lastActivation is only meaningful when it has.
func Decide(temperature uint8, now, lastActivation time.Duration, fired bool) Decision {
	if temperature <= Threshold {
		return Decision{State: Cold}
	}

	return Decision{
		State: Hot,
		Buzz:  !fired || now-lastActivation >= AlarmInterval,
	}
}

// Actuators groups the output pins.
type Actuators struct {
	Red    gpio.PinOut
	Green  gpio.PinOut
	Buzzer gpio.PinOut
}

// Controller drives the actuators and owns the alarm timer.
type Controller struct {
	// pins are the driven outputs.
	pins Actuators
	// clock supplies the time base and the buzzer pulse pause.
	clock clock.Clock
	// lastActivation is the clock reading at the last buzzer pulse.
	lastActivation time.Duration
	// fired reports whether the buzzer has pulsed since start.
	fired bool
	// state is the current controller state.
	state State
}

// New returns a controller in the Idle state. Pin levels are not touched.
func New(pins Actuators, clk clock.Clock) *Controller {
	return &Controller{
		pins:  pins,
		clock: clk,
		state: Idle,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// LastActivation returns the time of the last buzzer pulse and whether one happened.
func (c *Controller) LastActivation() (time.Duration, bool) {
	return c.lastActivation, c.fired
}

// Apply updates the actuators for one temperature sample. When the buzzer
// pulses, Apply blocks for PulseDuration.
func (c *Controller) Apply(ctx context.Context, temperature uint8) (Decision, error) {
	if temperature <= Threshold {
		decision := Decision{State: Cold}
		c.transition(ctx, decision.State, temperature)

		return decision, c.drive(gpio.Low, gpio.High, gpio.Low)
	}

	c.transition(ctx, Hot, temperature)

	if err := c.drive(gpio.High, gpio.Low, gpio.Low); err != nil {
		return Decision{State: Hot}, err
	}

	now := c.clock.Elapsed()

	decision := Decide(temperature, now, c.lastActivation, c.fired)
	if !decision.Buzz {
		return decision, nil
	}

	c.lastActivation = now
	c.fired = true

	logger.InfoKV(ctx, "Sounding alarm", "temperature", temperature, "at_ms", now.Milliseconds())

	return decision, c.pulse(ctx)
}

// Off drives every actuator low and returns to Idle.
func (c *Controller) Off() error {
	c.state = Idle

	return c.drive(gpio.Low, gpio.Low, gpio.Low)
}

// transition records the new state and logs changes.
func (c *Controller) transition(ctx context.Context, next State, temperature uint8) {
	if c.state == next {
		return
	}

	logger.InfoKV(ctx, "Controller state changed", "from", c.state, "to", next, "temperature", temperature)

	c.state = next
}

// pulse sounds the buzzer for PulseDuration. The buzzer is released even if
// the pause is interrupted.
func (c *Controller) pulse(ctx context.Context) error {
	if err := c.pins.Buzzer.Out(gpio.High); err != nil {
		return fmt.Errorf("buzzer on: %w", err)
	}

	sleepErr := c.clock.Sleep(ctx, PulseDuration)

	if err := c.pins.Buzzer.Out(gpio.Low); err != nil {
		return fmt.Errorf("buzzer off: %w", err)
	}

	return sleepErr
}

// drive sets the three actuator levels in red, green, buzzer order.
func (c *Controller) drive(red, green, buzzer gpio.Level) error {
	if err := c.pins.Red.Out(red); err != nil {
		return fmt.Errorf("red led: %w", err)
	}

	if err := c.pins.Green.Out(green); err != nil {
		return fmt.Errorf("green led: %w", err)
	}

	if err := c.pins.Buzzer.Out(buzzer); err != nil {
		return fmt.Errorf("buzzer: %w", err)
	}

	return nil
}
