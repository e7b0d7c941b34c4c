package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/zensor/internal/domain/sample"
)

// Metrics exposes node iterations as Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	hot         prometheus.Gauge
	samples     prometheus.Counter
	failures    prometheus.Counter
	alarms      prometheus.Counter
}

// NewMetrics registers the node collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		temperature: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zensor_temperature_celsius",
			Help: "Last temperature reported by the sensor",
		}),
		humidity: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zensor_humidity_percent",
			Help: "Last relative humidity reported by the sensor",
		}),
		hot: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zensor_hot",
			Help: "1 while the temperature is above the alarm threshold",
		}),
		samples: factory.NewCounter(prometheus.CounterOpts{
			Name: "zensor_samples_total",
			Help: "Successful sensor reads",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "zensor_read_failures_total",
			Help: "Failed sensor reads",
		}),
		alarms: factory.NewCounter(prometheus.CounterOpts{
			Name: "zensor_alarms_total",
			Help: "Buzzer pulses",
		}),
	}
}

// Publish implements Sink.
func (m *Metrics) Publish(_ context.Context, it *sample.Iteration) error {
	if it.Sample == nil {
		m.failures.Inc()

		return nil
	}

	m.samples.Inc()
	m.temperature.Set(float64(it.Sample.Temperature))
	m.humidity.Set(float64(it.Sample.Humidity))

	if it.Hot {
		m.hot.Set(1)
	} else {
		m.hot.Set(0)
	}

	if it.Buzzed {
		m.alarms.Inc()
	}

	return nil
}

// Close implements Sink.
func (m *Metrics) Close() error {
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
