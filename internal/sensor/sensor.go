package sensor

import (
	"context"
	"errors"

	"github.com/oshokin/zensor/internal/domain/sample"
)

// Sensor yields one sample per call.
type Sensor interface {
	// Read blocks until a sample is available or the attempt fails.
	Read(ctx context.Context) (*sample.Sample, error)
}

// ErrReadFailed wraps every failed read attempt.
var ErrReadFailed = errors.New("sensor read failed")
