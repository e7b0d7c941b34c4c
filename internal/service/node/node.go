package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/zensor/internal/clock"
	"github.com/oshokin/zensor/internal/controller"
	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/fingerprint"
	"github.com/oshokin/zensor/internal/logger"
	"github.com/oshokin/zensor/internal/report"
	"github.com/oshokin/zensor/internal/sensor"
	"github.com/oshokin/zensor/internal/telemetry"
)

// Dependencies are the collaborators of the loop.
type Dependencies struct {
	// Region is the fingerprint entropy source.
	Region fingerprint.Region
	// Fingerprint selects the sampled address range.
	Fingerprint fingerprint.Options
	// Sensor yields samples.
	Sensor sensor.Sensor
	// Controller drives the actuators and owns the alarm timer.
	Controller *controller.Controller
	// Report is the text output stream.
	Report *report.Writer
	// Clock is shared with the controller.
	Clock clock.Clock
	// Sink receives every iteration; nil disables telemetry.
	Sink telemetry.Sink
}

// node is the single-threaded loop driver.
// It is unexported to keep wiring in Run.
type node struct {
	deps Dependencies
}

// newNode returns a loop driver over the given collaborators.
func newNode(deps Dependencies) *node {
	return &node{
		deps: deps,
	}
}

// iterate runs one loop pass. A failed sensor read ends the pass early with a
// nil error; only cancellation and an invalid fingerprint range are returned.
func (n *node) iterate(ctx context.Context) (*sample.Iteration, error) {
	fp, err := fingerprint.Generate(n.deps.Region, n.deps.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("generate fingerprint: %w", err)
	}

	n.write(ctx, n.deps.Report.Fingerprint(fp))

	it := &sample.Iteration{
		Elapsed:     n.deps.Clock.Elapsed(),
		Fingerprint: fp.String(),
	}

	n.write(ctx, n.deps.Report.Header(it.Elapsed))

	s, err := n.deps.Sensor.Read(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		n.write(ctx, n.deps.Report.ReadFailed())
		logger.WarnKV(ctx, "Sensor read failed", "error", err, "uptime_ms", it.Elapsed.Milliseconds())

		// Actuators keep their levels, so the iteration reports the standing state.
		it.ReadErr = err
		it.Hot = n.deps.Controller.State() == controller.Hot
		n.publish(ctx, it)

		return it, nil
	}

	it.Sample = s

	n.write(ctx, n.deps.Report.Sample(s))

	decision, err := n.deps.Controller.Apply(ctx, s.Temperature)

	it.Hot = decision.State == controller.Hot
	it.Buzzed = decision.Buzz

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		logger.ErrorKV(ctx, "Actuator update failed", "error", err)
	}

	logger.DebugKV(ctx, "Sample processed",
		"temperature", s.Temperature,
		"humidity", s.Humidity,
		"state", decision.State,
		"buzzed", decision.Buzz,
	)

	n.publish(ctx, it)

	if err = n.deps.Clock.Sleep(ctx, controller.SamplePause); err != nil {
		return nil, err
	}

	return it, nil
}

// loop runs iterations until ctx is cancelled or, when limit is positive,
// until limit iterations have run.
func (n *node) loop(ctx context.Context, limit int) error {
	for i := 0; limit <= 0 || i < limit; i++ {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := n.iterate(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}

			return err
		}
	}

	return nil
}

// publish hands the iteration to the telemetry sink.
func (n *node) publish(ctx context.Context, it *sample.Iteration) {
	if n.deps.Sink == nil {
		return
	}

	if err := n.deps.Sink.Publish(ctx, it); err != nil {
		logger.WarnKV(ctx, "Telemetry publish failed", "error", err)
	}
}

// write logs report stream failures. The stream is best effort.
func (n *node) write(ctx context.Context, err error) {
	if err != nil {
		logger.ErrorKV(ctx, "Report write failed", "error", err)
	}
}
