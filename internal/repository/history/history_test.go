package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/sensor/dht11"
)

var errTestSink = errors.New("test sink error")

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

// TestHistory_NotFound verifies Load reports a missing file.
func TestHistory_NotFound(t *testing.T) {
	t.Parallel()

	h := NewHistory(filepath.Join(t.TempDir(), "missing.jsonl"))

	got, err := h.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, got)
}

// TestHistory_AppendLoad ensures appended iterations are read back in order.
func TestHistory_AppendLoad(t *testing.T) {
	t.Parallel()

	h := NewHistory(filepath.Join(t.TempDir(), "history.jsonl"))

	want := []*sample.Iteration{
		hotIteration(),
		{Elapsed: 2 * time.Second, Fingerprint: "03FA", ReadErr: errTestSink},
	}

	for _, it := range want {
		require.NoError(t, h.Publish(context.Background(), it))
	}

	got, err := h.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, want[0].Sample, got[0].Sample)
	require.Equal(t, want[0].Elapsed, got[0].Elapsed)
	require.True(t, got[0].Buzzed)

	require.Nil(t, got[1].Sample)
	require.EqualError(t, got[1].ReadErr, errTestSink.Error())
	require.Equal(t, "03FA", got[1].Fingerprint)
}

// TestHistory_MalformedRecord rejects a record with a truncated raw frame.
func TestHistory_MalformedRecord(t *testing.T) {
	t.Parallel()

	_, err := fromRecord(map[string]any{"ok": true, "raw": "0101"})
	require.ErrorIs(t, err, errMalformedRecord)
}
