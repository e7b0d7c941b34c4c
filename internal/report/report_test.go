package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/fingerprint"
)

var errTestWrite = errors.New("test write error")

// failingWriter rejects every write.
type failingWriter struct{}

// Write always fails.
func (failingWriter) Write([]byte) (int, error) { return 0, errTestWrite }

// TestWriter_Block verifies the exact literals of a successful iteration.
func TestWriter_Block(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w := NewWriter(&buf)

	s := &sample.Sample{Temperature: 31, Humidity: 45}
	s.Raw[2], s.Raw[39] = 1, 1

	require.NoError(t, w.Fingerprint(fingerprint.Fingerprint{0x03, 0xFA}))
	require.NoError(t, w.Header(1500*time.Millisecond))
	require.NoError(t, w.Sample(s))

	want := "PUF: 03FA\n" +
		"=================================\n" +
		"Timestamp: 1500 ms\n" +
		"RAW DHT11 Sensor Data: 00100000 00000000 00000000 00000000 00000001 \n" +
		"Temperature: 31 Celsius\n" +
		"Humidity: 45%\n"

	require.Equal(t, want, buf.String())
}

// TestWriter_ReadFailed verifies the failure literal.
func TestWriter_ReadFailed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, NewWriter(&buf).ReadFailed())
	require.Equal(t, "Read DHT11 failed\n", buf.String())
}

// TestWriter_PropagatesErrors checks that sink failures are returned.
func TestWriter_PropagatesErrors(t *testing.T) {
	t.Parallel()

	err := NewWriter(failingWriter{}).ReadFailed()
	require.ErrorIs(t, err, errTestWrite)
}
