package sample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// bitsOf expands bytes into a raw transmission, MSB first.
func bitsOf(b [RawBits / 8]byte) [RawBits]byte {
	var raw [RawBits]byte

	for i := range raw {
		raw[i] = b[i/8] >> (7 - i%8) & 1
	}

	return raw
}

// TestSample_Bytes verifies packing of raw bits into transmitted bytes.
func TestSample_Bytes(t *testing.T) {
	t.Parallel()

	want := [RawBits / 8]byte{0x2D, 0x00, 0x1F, 0x03, 0x4F}
	s := &Sample{Raw: bitsOf(want)}

	require.Equal(t, want, s.Bytes())
}

// TestSample_BinaryString checks grouping of raw bits by eight.
func TestSample_BinaryString(t *testing.T) {
	t.Parallel()

	s := &Sample{Raw: bitsOf([RawBits / 8]byte{0x2D, 0x00, 0x1F, 0x03, 0x4F})}

	require.Equal(t, "00101101 00000000 00011111 00000011 01001111 ", s.BinaryString())
}

// TestIterationClone verifies the sample is deep-copied.
func TestIterationClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Iteration)(nil).Clone())

	it := &Iteration{
		Fingerprint: "00",
		Sample:      &Sample{Temperature: 31, Humidity: 40},
		Hot:         true,
	}

	c := it.Clone()
	require.Equal(t, it, c)
	require.NotSame(t, it.Sample, c.Sample)
}
