package seriallog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"

	"github.com/oshokin/zensor/internal/config"
	"github.com/oshokin/zensor/internal/fingerprint"
	"github.com/oshokin/zensor/internal/logger"
)

// Options controls the logger process.
type Options struct {
	// Device is the serial device or file to read from.
	Device string
	// Baud is the line speed used when Device is a terminal; zero selects DefaultBaud.
	Baud int
	// Output is the log file receiving every line.
	Output string
	// Echo receives a copy of every line; nil disables echoing.
	Echo io.Writer
	// Follow keeps waiting for new data at end of input instead of returning.
	Follow bool
}

const (
	// DefaultDevice is the usual USB serial adapter on Linux.
	DefaultDevice = "/dev/ttyUSB0"
	// DefaultBaud matches the node's serial console speed.
	DefaultBaud = 9600

	// pollInterval is the wait between reads once the input is drained.
	pollInterval = 200 * time.Millisecond
)

var (
	// errDeviceRequired is returned when no device is configured.
	errDeviceRequired = errors.New("device must be provided")
	// errInvalidBaud is returned for a negative line speed.
	errInvalidBaud = errors.New("baud rate must not be negative")
	// errInvalidText is logged for lines that are not valid UTF-8.
	errInvalidText = errors.New("line is not valid utf-8")
)

// Run copies lines from the device to the log file until ctx is cancelled
// or, without Follow, until the input ends. A line is written only once its
// terminating newline has arrived; an unterminated tail is flushed on exit.
//
//nolint:cyclop,funlen // The read loop handles several distinct outcomes.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "zensor-logger")

	if opts.Device == "" {
		return errDeviceRequired
	}

	if opts.Baud < 0 {
		return fmt.Errorf("%w: %d", errInvalidBaud, opts.Baud)
	}

	baud := opts.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	output := opts.Output
	if output == "" {
		output = config.DefaultLogFilename
	}

	device, err := openDevice(opts.Device, baud)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}

	// Closing the device unblocks a pending read on cancellation.
	stop := context.AfterFunc(ctx, func() {
		_ = device.Close()
	})

	defer func() {
		if stop() {
			_ = device.Close()
		}
	}()

	logFile, err := os.OpenFile(
		filepath.Clean(output),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		config.DefaultFilePermissions,
	)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	defer func() {
		_ = logFile.Close()
	}()

	logger.InfoKV(ctx, "Logging serial output", "device", opts.Device, "baud", baud, "output", output)

	var (
		reader  = bufio.NewReader(device)
		pending strings.Builder
		lines   int
	)

	flush := func() error {
		if pending.Len() == 0 {
			return nil
		}

		line := pending.String()
		pending.Reset()
		lines++

		return copyLine(ctx, logFile, opts.Echo, line)
	}

	finish := func(message string) error {
		if err := flush(); err != nil {
			return err
		}

		logger.InfoKV(ctx, message, "lines", lines)

		return nil
	}

	for {
		chunk, readErr := reader.ReadString('\n')
		pending.WriteString(chunk)

		if readErr == nil {
			if err = flush(); err != nil {
				return err
			}

			continue
		}

		switch {
		case ctx.Err() != nil:
			return finish("Exiting")
		case errors.Is(readErr, io.EOF) && !opts.Follow:
			return finish("Input ended")
		case errors.Is(readErr, io.EOF):
		default:
			logger.ErrorKV(ctx, "Read failed", "error", readErr)
		}

		select {
		case <-ctx.Done():
			return finish("Exiting")
		case <-time.After(pollInterval):
		}
	}
}

// openDevice opens a terminal as a serial port at the given speed and any
// other path, such as a capture file, as a plain file.
//
//nolint:ireturn // Serial ports and files share only the reader interface.
func openDevice(path string, baud int) (io.ReadCloser, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeCharDevice == 0 {
		return os.Open(path)
	}

	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("configure serial port: %w", err)
	}

	return port, nil
}

// copyLine appends one line to the log and echoes it. Undecodable lines are
// logged and skipped; write failures are returned.
func copyLine(ctx context.Context, logFile *os.File, echo io.Writer, line string) error {
	line = strings.TrimRight(line, " \t\r\n")

	if !utf8.ValidString(line) {
		logger.ErrorKV(ctx, "Skipping line", "error", errInvalidText)

		return nil
	}

	if _, err := logFile.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log file: %w", err)
	}

	if echo != nil {
		_, _ = fmt.Fprintln(echo, line)
	}

	return nil
}

// Identity prints the most recent fingerprint found in a log file.
func Identity(_ context.Context, path string, out io.Writer) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read log file: %w", err)
	}

	fp, err := fingerprint.FindLast(string(contents))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	_, err = fmt.Fprintln(out, fp.String())

	return err
}
