package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/status"
)

// staticSource returns a fixed snapshot.
type staticSource status.Snapshot

// Snapshot implements Snapshotter.
func (s staticSource) Snapshot() status.Snapshot { return status.Snapshot(s) }

// TestRouter_Status renders the JSON snapshot.
func TestRouter_Status(t *testing.T) {
	t.Parallel()

	source := staticSource{
		SessionID: "session",
		Last: &sample.Iteration{
			Elapsed:     2 * time.Second,
			Fingerprint: "03FA",
			ReadErr:     errors.New("dht11 timeout"),
			Hot:         true,
		},
		LastSample: &sample.Sample{Temperature: 31, Humidity: 45},
		Samples:    3,
		Failures:   1,
	}

	rec := httptest.NewRecorder()
	NewRouter(source, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "HOT", got.State)
	require.Equal(t, int64(2000), got.UptimeMS)
	require.Equal(t, "03FA", got.Fingerprint)
	require.Equal(t, "dht11 timeout", got.LastError)
	require.NotNil(t, got.Temperature)
	require.Equal(t, uint8(31), *got.Temperature)
	require.Equal(t, uint64(3), got.Samples)
}

// TestRouter_IdleAndCORS checks the empty snapshot, metrics and CORS headers.
func TestRouter_IdleAndCORS(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("zensor_samples_total 0\n"))
	})
	router := NewRouter(staticSource{}, metrics)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://dashboard.local")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "IDLE", got.State)
	require.Nil(t, got.Temperature)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), "zensor_samples_total")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

// TestServe_StopsOnCancel verifies graceful shutdown.
func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- Serve(ctx, lis, NewRouter(staticSource{}, nil)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + lis.Addr().String() + "/healthz") //nolint:noctx // Plain liveness request.
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// TestRouter_StatusAfterFailedRead reports the standing HOT state from a live tracker.
func TestRouter_StatusAfterFailedRead(t *testing.T) {
	t.Parallel()

	tracker := status.NewTracker("session", time.Unix(1700000000, 0))
	require.NoError(t, tracker.Publish(context.Background(), &sample.Iteration{
		Sample: &sample.Sample{Temperature: 35, Humidity: 40},
		Hot:    true,
	}))
	require.NoError(t, tracker.Publish(context.Background(), &sample.Iteration{
		ReadErr: errors.New("dht11 timeout"),
	}))

	rec := httptest.NewRecorder()
	NewRouter(tracker, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "HOT", got.State)
	require.NotNil(t, got.Temperature)
	require.Equal(t, uint8(35), *got.Temperature)
	require.Equal(t, "dht11 timeout", got.LastError)
}
