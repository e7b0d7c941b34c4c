package sample

import (
	"strings"
	"time"
)

// RawBits is the length of one DHT11 transmission.
const RawBits = 40

// Sample is one successful sensor reading.
type Sample struct {
	// Raw holds the transmission bits in arrival order, each entry 0 or 1.
	Raw [RawBits]byte
	// Temperature is the integral part in degrees Celsius.
	Temperature uint8
	// Humidity is the integral part of the relative humidity in percent.
	Humidity uint8
}

// Bytes packs the raw bits into the five transmitted bytes, MSB first.
func (s *Sample) Bytes() [RawBits / 8]byte {
	var out [RawBits / 8]byte

	for i, bit := range s.Raw {
		out[i/8] = out[i/8]<<1 | bit&1
	}

	return out
}

// BinaryString renders the raw bits with a space after every group of eight.
func (s *Sample) BinaryString() string {
	var b strings.Builder

	b.Grow(RawBits + RawBits/8)

	for i, bit := range s.Raw {
		if bit&1 == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}

		if i%8 == 7 {
			b.WriteByte(' ')
		}
	}

	return b.String()
}

// Clone returns a copy of the sample.
func (s *Sample) Clone() *Sample {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Iteration is the observable outcome of one node loop pass.
type Iteration struct {
	// Elapsed is the node uptime when the iteration started.
	Elapsed time.Duration
	// Fingerprint is the hex rendering produced in this iteration.
	Fingerprint string
	// Sample is nil when the sensor read failed.
	Sample *Sample
	// ReadErr is the sensor failure, if any.
	ReadErr error
	// Hot reports whether the controller is in the HOT state after the iteration.
	Hot bool
	// Buzzed reports whether the buzzer pulsed during the iteration.
	Buzzed bool
}

// Clone returns a deep copy of the iteration.
func (it *Iteration) Clone() *Iteration {
	if it == nil {
		return nil
	}

	cloned := *it
	cloned.Sample = it.Sample.Clone()

	return &cloned
}
