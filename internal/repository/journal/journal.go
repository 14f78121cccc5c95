package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/logger"
)

// Journal defines persistence operations for alerts.
type Journal interface {
	// Append stores one alert.
	Append(ctx context.Context, alert *posture.Alert) error
	// Recent returns up to limit alerts, newest first. A non-positive limit returns all.
	Recent(ctx context.Context, limit int) ([]*posture.Alert, error)
	// Close releases the underlying storage.
	Close() error
}

// errUnknownBackend is returned by Open for an unsupported backend name.
var errUnknownBackend = errors.New("unknown journal backend")

// Open returns the journal configured by cfg, or nil for the "none" backend.
func Open(ctx context.Context, cfg *config.Journal) (Journal, error) {
	switch cfg.Backend {
	case config.JournalNone, "":
		return nil, nil //nolint:nilnil // disabled journal.
	case config.JournalFile:
		return NewFileJournal(cfg.Path), nil
	case config.JournalSQLite:
		j, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}

		return j, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend)
	}
}

// Sink adapts a journal for the sampling loop.
func Sink(j Journal) func(ctx context.Context, alert *posture.Alert) {
	return func(ctx context.Context, alert *posture.Alert) {
		if err := j.Append(ctx, alert); err != nil {
			logger.WarnKV(ctx, "Failed to journal alert", "alert_id", alert.ID, "error", err)
		}
	}
}

// newestFirst reverses alerts in place and keeps at most limit entries.
func newestFirst(alerts []*posture.Alert, limit int) []*posture.Alert {
	for i, j := 0, len(alerts)-1; i < j; i, j = i+1, j-1 {
		alerts[i], alerts[j] = alerts[j], alerts[i]
	}

	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}

	return alerts
}
