// Package wire converts alerts and session status to protobuf well-known
// Struct messages shared by the gRPC API, the journal and the publishers.
package wire

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/monitor"
)

// Alert field names.
const (
	FieldID          = "id"
	FieldTimestamp   = "timestamp"
	FieldStreakStart = "streak_start"
	FieldStreakMs    = "streak_ms"
	FieldStrategy    = "strategy"
	FieldMetric      = "metric"
)

// errMissingField is returned when a decoded alert lacks a required field.
var errMissingField = errors.New("missing field")

// AlertMap returns the alert as a flat map of JSON-friendly values.
func AlertMap(alert *posture.Alert) map[string]any {
	return map[string]any{
		FieldID:          alert.ID,
		FieldTimestamp:   formatTime(alert.Timestamp),
		FieldStreakStart: formatTime(alert.StreakStart),
		FieldStreakMs:    alert.StreakDuration().Milliseconds(),
		FieldStrategy:    alert.Strategy,
		FieldMetric:      alert.Metric,
	}
}

// AlertToStruct encodes an alert.
func AlertToStruct(alert *posture.Alert) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(AlertMap(alert))
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}

	return msg, nil
}

// AlertFromStruct decodes an alert.
func AlertFromStruct(msg *structpb.Struct) (*posture.Alert, error) {
	fields := msg.GetFields()

	id := fields[FieldID].GetStringValue()
	if id == "" {
		return nil, fmt.Errorf("%w: %s", errMissingField, FieldID)
	}

	timestamp, err := parseTime(fields[FieldTimestamp].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", FieldTimestamp, err)
	}

	streakStart, err := parseTime(fields[FieldStreakStart].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", FieldStreakStart, err)
	}

	return &posture.Alert{
		ID:          id,
		Timestamp:   timestamp,
		StreakStart: streakStart,
		Strategy:    fields[FieldStrategy].GetStringValue(),
		Metric:      fields[FieldMetric].GetNumberValue(),
	}, nil
}

// Status is the decoded form of a session snapshot.
type Status struct {
	Active     bool
	Strategy   string
	Phase      string
	Ticks      uint64
	NotReady   uint64
	Failed     uint64
	Missed     uint64
	Classified uint64
	Bad        uint64
	Alerts     uint64
	Watchers   uint64
	LastMetric float64
	LastTick   time.Time
	LastAlert  time.Time
}

// StatusToStruct encodes a session snapshot and the current watcher count.
func StatusToStruct(snap *monitor.Snapshot, watchers int) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"active":      snap.Active,
		"strategy":    snap.Strategy,
		"phase":       snap.Phase.String(),
		"ticks":       snap.Ticks,
		"not_ready":   snap.NotReady,
		"failed":      snap.Failed,
		"missed":      snap.Missed,
		"classified":  snap.Classified,
		"bad":         snap.Bad,
		"alerts":      snap.Alerts,
		"watchers":    watchers,
		"last_metric": snap.LastMetric,
		"last_tick":   formatTime(snap.LastTick),
		"last_alert":  formatTime(snap.LastAlert),
	})
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}

	return msg, nil
}

// StatusFromStruct decodes a session snapshot.
func StatusFromStruct(msg *structpb.Struct) (*Status, error) {
	fields := msg.GetFields()

	lastTick, err := parseTime(fields["last_tick"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("decode last_tick: %w", err)
	}

	lastAlert, err := parseTime(fields["last_alert"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("decode last_alert: %w", err)
	}

	count := func(name string) uint64 {
		return uint64(fields[name].GetNumberValue())
	}

	return &Status{
		Active:     fields["active"].GetBoolValue(),
		Strategy:   fields["strategy"].GetStringValue(),
		Phase:      fields["phase"].GetStringValue(),
		Ticks:      count("ticks"),
		NotReady:   count("not_ready"),
		Failed:     count("failed"),
		Missed:     count("missed"),
		Classified: count("classified"),
		Bad:        count("bad"),
		Alerts:     count("alerts"),
		Watchers:   count("watchers"),
		LastMetric: fields["last_metric"].GetNumberValue(),
		LastTick:   lastTick,
		LastAlert:  lastAlert,
	}, nil
}

// formatTime renders t in RFC 3339 with nanoseconds, empty for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, s)
}
