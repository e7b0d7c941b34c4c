package dht11

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/sensor"
)

const (
	// MinInterval is the shortest allowed time between two reads.
	MinInterval = time.Second

	// startSignal is how long the host holds the line low.
	startSignal = 20 * time.Millisecond
	// bitThreshold separates a 0 high pulse from a 1 high pulse.
	bitThreshold = 50 * time.Microsecond
	// captureTimeout bounds one transmission, nominally about 5 ms.
	captureTimeout = 50 * time.Millisecond
)

var (
	// ErrTimeout is returned when the sensor stops answering mid-frame.
	ErrTimeout = errors.New("dht11 timeout")
	// ErrChecksum is returned when the checksum byte does not match.
	ErrChecksum = errors.New("dht11 checksum mismatch")
	// ErrShortFrame is returned when fewer than 40 bit pulses were captured.
	ErrShortFrame = errors.New("dht11 short frame")
)

// Receiver captures the widths of the high pulses of one transmission.
type Receiver interface {
	Receive(ctx context.Context) ([]time.Duration, error)
}

// Device is a DHT11 on one GPIO line.
type Device struct {
	// receiver performs the physical exchange.
	receiver Receiver
	// lastRead is the end of the previous exchange.
	lastRead time.Time
	// now and sleep are the time base, replaceable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a device bit-banging the given pin.
func New(pin gpio.PinIO) *Device {
	return NewWithReceiver(&pinReceiver{pin: pin})
}

// NewWithReceiver returns a device backed by an arbitrary receiver.
func NewWithReceiver(r Receiver) *Device {
	return &Device{
		receiver: r,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Read performs one exchange, waiting first if the previous one was less than
// MinInterval ago. Every failure wraps sensor.ErrReadFailed.
func (d *Device) Read(ctx context.Context) (*sample.Sample, error) {
	if !d.lastRead.IsZero() {
		if wait := MinInterval - d.now().Sub(d.lastRead); wait > 0 {
			if err := d.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	pulses, err := d.receiver.Receive(ctx)
	d.lastRead = d.now()

	if err != nil {
		return nil, fmt.Errorf("%w: %w", sensor.ErrReadFailed, err)
	}

	raw, err := DecodePulses(pulses)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sensor.ErrReadFailed, err)
	}

	s, err := DecodeBits(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sensor.ErrReadFailed, err)
	}

	return s, nil
}

// DecodePulses turns high pulse widths into bits. Only the last 40 pulses are
// used, so leading handshake pulses may be included.
func DecodePulses(pulses []time.Duration) ([sample.RawBits]byte, error) {
	var raw [sample.RawBits]byte

	if len(pulses) < sample.RawBits {
		return raw, fmt.Errorf("%w: %d pulses", ErrShortFrame, len(pulses))
	}

	for i, width := range pulses[len(pulses)-sample.RawBits:] {
		if width > bitThreshold {
			raw[i] = 1
		}
	}

	return raw, nil
}

// DecodeBits verifies the checksum and extracts the integral readings.
func DecodeBits(raw [sample.RawBits]byte) (*sample.Sample, error) {
	s := &sample.Sample{Raw: raw}
	b := s.Bytes()

	if sum := b[0] + b[1] + b[2] + b[3]; sum != b[4] {
		return nil, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, b[4], sum)
	}

	s.Humidity = b[0]
	s.Temperature = b[2]

	return s, nil
}

// Encode builds a valid transmission for the given integral readings.
func Encode(humidity, temperature uint8) [sample.RawBits]byte {
	frame := [sample.RawBits / 8]byte{humidity, 0, temperature, 0, humidity + temperature}

	var raw [sample.RawBits]byte
	for i := range raw {
		raw[i] = frame[i/8] >> (7 - i%8) & 1
	}

	return raw
}

// pinReceiver bit-bangs the exchange on a GPIO line by polling its level.
type pinReceiver struct {
	pin gpio.PinIO
}

// Receive implements Receiver.
func (r *pinReceiver) Receive(ctx context.Context) ([]time.Duration, error) {
	if err := r.pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("start signal: %w", err)
	}

	if err := sleepContext(ctx, startSignal); err != nil {
		return nil, err
	}

	if err := r.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("release line: %w", err)
	}

	// Release high, response high, then one high per bit.
	const wantHighs = sample.RawBits + 2

	var (
		highs    = make([]time.Duration, 0, wantHighs)
		level    = r.pin.Read()
		since    = time.Now()
		deadline = since.Add(captureTimeout)
	)

	for len(highs) < wantHighs {
		now := time.Now()
		if now.After(deadline) {
			return nil, fmt.Errorf("%w after %d pulses", ErrTimeout, len(highs))
		}

		current := r.pin.Read()
		if current == level {
			continue
		}

		if level == gpio.High {
			highs = append(highs, now.Sub(since))
		}

		level, since = current, now
	}

	return highs, nil
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
