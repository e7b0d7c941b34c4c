package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/sensor/dht11"
)

var errTestSink = errors.New("test sink error")

// recordingSink remembers published iterations and can fail on demand.
type recordingSink struct {
	got    []*sample.Iteration
	err    error
	closed bool
}

// Publish records the iteration.
func (r *recordingSink) Publish(_ context.Context, it *sample.Iteration) error {
	r.got = append(r.got, it)

	return r.err
}

// Close marks the sink closed.
func (r *recordingSink) Close() error {
	r.closed = true

	return r.err
}

// hotIteration is a successful iteration above the threshold.
func hotIteration() *sample.Iteration {
	return &sample.Iteration{
		Elapsed:     1500 * time.Millisecond,
		Fingerprint: "03FA",
		Sample: &sample.Sample{
			Raw:         dht11.Encode(45, 31),
			Temperature: 31,
			Humidity:    45,
		},
		Hot:    true,
		Buzzed: true,
	}
}

// TestMulti_PublishesToAll verifies fan-out continues past failing sinks.
func TestMulti_PublishesToAll(t *testing.T) {
	t.Parallel()

	failing := &recordingSink{err: errTestSink}
	ok := new(recordingSink)

	m := Multi{failing, ok}

	err := m.Publish(context.Background(), hotIteration())
	require.ErrorIs(t, err, errTestSink)
	require.Len(t, ok.got, 1)

	require.ErrorIs(t, m.Close(), errTestSink)
	require.True(t, ok.closed)
}

// TestMetrics_Publish checks gauges and counters.
func TestMetrics_Publish(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	require.NoError(t, m.Publish(context.Background(), hotIteration()))
	require.NoError(t, m.Publish(context.Background(), &sample.Iteration{ReadErr: errTestSink}))

	require.InDelta(t, 31, testutil.ToFloat64(m.temperature), 0)
	require.InDelta(t, 45, testutil.ToFloat64(m.humidity), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.hot), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.samples), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.failures), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.alarms), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "zensor_temperature_celsius 31")
}

// TestInfluxSink_WritesLineProtocol runs the sink against a fake InfluxDB endpoint.
func TestInfluxSink_WritesLineProtocol(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		bodies []string
		query  string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		bodies = append(bodies, string(body))
		query = r.URL.RawQuery
		mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := NewInfluxSink(server.URL, "token", "home", "zensor", "session-1")
	sink.now = func() time.Time { return time.Unix(1700000000, 0) }

	defer func() {
		require.NoError(t, sink.Close())
	}()

	// Failed reads produce no point.
	require.NoError(t, sink.Publish(context.Background(), &sample.Iteration{ReadErr: errTestSink}))
	require.NoError(t, sink.Publish(context.Background(), hotIteration()))

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], "dht11,fingerprint=03FA,session_id=session-1 "))
	require.Contains(t, bodies[0], "temperature=31i")
	require.Contains(t, bodies[0], "humidity=45i")
	require.Contains(t, query, "bucket=zensor")
	require.Contains(t, query, "org=home")
}
