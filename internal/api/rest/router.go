package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/oshokin/zensor/internal/status"
)

// Snapshotter provides the current node status.
type Snapshotter interface {
	Snapshot() status.Snapshot
}

// statusResponse is the JSON body of GET /status.
type statusResponse struct {
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	UptimeMS    int64     `json:"uptime_ms"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	State       string    `json:"state"`
	Temperature *uint8    `json:"temperature,omitempty"`
	Humidity    *uint8    `json:"humidity,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Samples     uint64    `json:"samples"`
	Failures    uint64    `json:"failures"`
	Alarms      uint64    `json:"alarms"`
}

// NewRouter builds the status handler. metrics may be nil.
func NewRouter(source Snapshotter, metrics http.Handler) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	router.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, toResponse(source.Snapshot()))
	}).Methods(http.MethodGet)

	if metrics != nil {
		router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)
}

// toResponse flattens a snapshot for JSON output.
func toResponse(snap status.Snapshot) statusResponse {
	resp := statusResponse{
		SessionID: snap.SessionID,
		StartedAt: snap.StartedAt,
		State:     "IDLE",
		Samples:   snap.Samples,
		Failures:  snap.Failures,
		Alarms:    snap.Alarms,
	}

	if last := snap.Last; last != nil {
		resp.UptimeMS = last.Elapsed.Milliseconds()
		resp.Fingerprint = last.Fingerprint

		if last.ReadErr != nil {
			resp.LastError = last.ReadErr.Error()
		}
	}

	if s := snap.LastSample; s != nil {
		temperature, humidity := s.Temperature, s.Humidity
		resp.Temperature, resp.Humidity = &temperature, &humidity

		resp.State = "COLD"
		if snap.Last != nil && snap.Last.Hot {
			resp.State = "HOT"
		}
	}

	return resp
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}
