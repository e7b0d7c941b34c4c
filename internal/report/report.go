package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/fingerprint"
)

const (
	// Separator opens every measurement block.
	Separator = "================================="
	// ReadFailedLine is written instead of a measurement when the sensor read fails.
	ReadFailedLine = "Read DHT11 failed"

	rawPrefix = "RAW DHT11 Sensor Data: "
)

// Writer is an append-only, line-oriented report stream.
type Writer struct {
	// out receives every line.
	out io.Writer
	// mu keeps lines whole when the stream is shared.
	mu sync.Mutex
}

// NewWriter returns a report stream over out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{
		out: out,
	}
}

// Fingerprint writes the "PUF: <hex>" line.
func (w *Writer) Fingerprint(fp fingerprint.Fingerprint) error {
	return w.lines(fp.Line())
}

// Header writes the separator and the uptime in milliseconds.
func (w *Writer) Header(elapsed time.Duration) error {
	return w.lines(
		Separator,
		fmt.Sprintf("Timestamp: %d ms", elapsed.Milliseconds()),
	)
}

// Sample writes the raw transmission, temperature and humidity.
func (w *Writer) Sample(s *sample.Sample) error {
	return w.lines(
		rawPrefix+s.BinaryString(),
		fmt.Sprintf("Temperature: %d Celsius", s.Temperature),
		fmt.Sprintf("Humidity: %d%%", s.Humidity),
	)
}

// ReadFailed writes the sensor failure line.
func (w *Writer) ReadFailed() error {
	return w.lines(ReadFailedLine)
}

// lines writes each line followed by a newline.
func (w *Writer) lines(lines ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, line := range lines {
		if _, err := io.WriteString(w.out, line+"\n"); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}
