package history

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/zensor/internal/config"
	"github.com/oshokin/zensor/internal/domain/sample"
)

// History appends every iteration to a JSON lines file. Each line is the
// protojson encoding of a google.protobuf.Struct, so any protobuf-aware tool
// can read it back.
type History struct {
	// path is the filesystem location of the history file.
	path string
	// now stamps records with wall-clock time.
	now func() time.Time
	// mu serialises appends and reads.
	mu sync.Mutex
}

// ErrNotFound is returned when the history file does not exist yet.
var ErrNotFound = errors.New("history not found")

// errMalformedRecord is returned for a line that is not a history record.
var errMalformedRecord = errors.New("malformed history record")

// NewHistory creates a history writer for the provided path.
func NewHistory(path string) *History {
	return &History{
		path: filepath.Clean(path),
		now:  time.Now,
	}
}

// Publish implements telemetry.Sink.
func (h *History) Publish(_ context.Context, it *sample.Iteration) error {
	record, err := structpb.NewStruct(toRecord(it, h.now()))
	if err != nil {
		return fmt.Errorf("build history record: %w", err)
	}

	line, err := protojson.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}

	if _, err = file.Write(append(line, '\n')); err != nil {
		_ = file.Close()

		return fmt.Errorf("write history file: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}

	return nil
}

// Close implements telemetry.Sink.
func (h *History) Close() error {
	return nil
}

// Load reads every record back in file order.
func (h *History) Load(_ context.Context) ([]*sample.Iteration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	contents, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read history file: %w", err)
	}

	var (
		result  []*sample.Iteration
		scanner = bufio.NewScanner(bytes.NewReader(contents))
	)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record structpb.Struct
		if err = protojson.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decode history record: %w", err)
		}

		it, err := fromRecord(record.AsMap())
		if err != nil {
			return nil, err
		}

		result = append(result, it)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history file: %w", err)
	}

	return result, nil
}

// toRecord converts an iteration into a structpb-compatible map.
func toRecord(it *sample.Iteration, recordedAt time.Time) map[string]any {
	record := map[string]any{
		"recorded_at": recordedAt.UTC().Format(time.RFC3339Nano),
		"uptime_ms":   float64(it.Elapsed.Milliseconds()),
		"fingerprint": it.Fingerprint,
		"ok":          it.Sample != nil,
		"hot":         it.Hot,
		"buzzed":      it.Buzzed,
	}

	if it.Sample != nil {
		record["temperature"] = float64(it.Sample.Temperature)
		record["humidity"] = float64(it.Sample.Humidity)
		record["raw"] = strings.ReplaceAll(it.Sample.BinaryString(), " ", "")
	}

	if it.ReadErr != nil {
		record["error"] = it.ReadErr.Error()
	}

	return record
}

// fromRecord converts a decoded record back into an iteration.
func fromRecord(record map[string]any) (*sample.Iteration, error) {
	fingerprint, _ := record["fingerprint"].(string)
	uptime, _ := record["uptime_ms"].(float64)
	hot, _ := record["hot"].(bool)
	buzzed, _ := record["buzzed"].(bool)

	it := &sample.Iteration{
		Elapsed:     time.Duration(uptime) * time.Millisecond,
		Fingerprint: fingerprint,
		Hot:         hot,
		Buzzed:      buzzed,
	}

	if message, ok := record["error"].(string); ok {
		it.ReadErr = errors.New(message) //nolint:err113 // Restored from text, not matched.
	}

	if ok, _ := record["ok"].(bool); !ok {
		return it, nil
	}

	raw, _ := record["raw"].(string)
	if len(raw) != sample.RawBits {
		return nil, fmt.Errorf("%w: raw has %d bits", errMalformedRecord, len(raw))
	}

	temperature, _ := record["temperature"].(float64)
	humidity, _ := record["humidity"].(float64)

	s := &sample.Sample{
		Temperature: uint8(temperature),
		Humidity:    uint8(humidity),
	}

	for i, c := range raw {
		if c == '1' {
			s.Raw[i] = 1
		}
	}

	it.Sample = s

	return it, nil
}
