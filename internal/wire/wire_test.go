package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/posture-alarm/internal/debounce"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/monitor"
)

// TestAlertStruct verifies alerts survive encoding, including the streak length.
func TestAlertStruct(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	alert := &posture.Alert{
		ID:          "8c1d",
		Timestamp:   start.Add(20 * time.Second),
		StreakStart: start,
		Strategy:    "neck-nose",
		Metric:      137.5,
	}

	msg, err := AlertToStruct(alert)
	require.NoError(t, err)
	require.InDelta(t, 20000, msg.GetFields()[FieldStreakMs].GetNumberValue(), 1e-9)

	got, err := AlertFromStruct(msg)
	require.NoError(t, err)
	require.Equal(t, alert, got)
}

// TestAlertFromStruct_Invalid rejects missing ids and malformed times.
func TestAlertFromStruct_Invalid(t *testing.T) {
	t.Parallel()

	_, err := AlertFromStruct(&structpb.Struct{})
	require.Error(t, err)

	msg, err := structpb.NewStruct(map[string]any{FieldID: "x", FieldTimestamp: "yesterday"})
	require.NoError(t, err)

	_, err = AlertFromStruct(msg)
	require.Error(t, err)
}

// TestStatusStruct verifies counters and phase are carried.
func TestStatusStruct(t *testing.T) {
	t.Parallel()

	snap := &monitor.Snapshot{
		Active:     true,
		Ticks:      300,
		Missed:     4,
		Classified: 296,
		Bad:        250,
		Alerts:     1,
		LastMetric: 88.5,
		LastTick:   time.Date(2026, 10, 17, 9, 0, 30, 0, time.UTC),
		Phase:      debounce.PhaseAccruing,
		Strategy:   "ear-shoulder",
	}

	msg, err := StatusToStruct(snap, 2)
	require.NoError(t, err)

	got, err := StatusFromStruct(msg)
	require.NoError(t, err)
	require.True(t, got.Active)
	require.Equal(t, "accruing", got.Phase)
	require.Equal(t, uint64(300), got.Ticks)
	require.Equal(t, uint64(250), got.Bad)
	require.Equal(t, uint64(2), got.Watchers)
	require.Equal(t, snap.LastTick, got.LastTick)
	require.True(t, got.LastAlert.IsZero())
}
