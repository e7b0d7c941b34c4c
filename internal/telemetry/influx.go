package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/oshokin/zensor/internal/domain/sample"
)

// measurement is the InfluxDB measurement name of node samples.
const measurement = "dht11"

// InfluxSink writes every successful sample as one point.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	// session tags points with the node run that produced them.
	session string
	// now stamps points; the node has no wall clock of its own.
	now func() time.Time
}

// NewInfluxSink connects to InfluxDB. No request is made until the first point.
func NewInfluxSink(url, token, org, bucket, session string) *InfluxSink {
	client := influxdb2.NewClient(url, token)

	return &InfluxSink{
		client:  client,
		writer:  client.WriteAPIBlocking(org, bucket),
		session: session,
		now:     time.Now,
	}
}

// Publish implements Sink. Failed reads are skipped.
func (s *InfluxSink) Publish(ctx context.Context, it *sample.Iteration) error {
	if it.Sample == nil {
		return nil
	}

	point := influxdb2.NewPoint(
		measurement,
		map[string]string{
			"fingerprint": it.Fingerprint,
			"session_id":  s.session,
		},
		map[string]any{
			"temperature": int64(it.Sample.Temperature),
			"humidity":    int64(it.Sample.Humidity),
			"hot":         it.Hot,
			"buzzed":      it.Buzzed,
			"uptime_ms":   it.Elapsed.Milliseconds(),
		},
		s.now(),
	)

	if err := s.writer.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("write influxdb point: %w", err)
	}

	return nil
}

// Close implements Sink.
func (s *InfluxSink) Close() error {
	s.client.Close()

	return nil
}
