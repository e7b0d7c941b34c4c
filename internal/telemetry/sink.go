package telemetry

import (
	"context"
	"errors"

	"github.com/oshokin/zensor/internal/domain/sample"
)

// Sink receives the outcome of every loop iteration.
type Sink interface {
	Publish(ctx context.Context, it *sample.Iteration) error
	Close() error
}

// Multi publishes to several sinks and joins their errors.
type Multi []Sink

// Publish implements Sink.
func (m Multi) Publish(ctx context.Context, it *sample.Iteration) error {
	var errs []error

	for _, s := range m {
		if err := s.Publish(ctx, it); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close implements Sink.
func (m Multi) Close() error {
	var errs []error

	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
