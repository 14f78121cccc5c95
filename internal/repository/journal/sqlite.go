package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	fired_at     INTEGER NOT NULL,
	streak_start INTEGER NOT NULL,
	strategy     TEXT NOT NULL,
	metric       REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS alerts_fired_at ON alerts (fired_at);`

// SQLiteJournal stores alerts in a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Append implements Journal. Re-appending the same alert ID is a no-op.
func (j *SQLiteJournal) Append(ctx context.Context, alert *posture.Alert) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO alerts (id, fired_at, streak_start, strategy, metric) VALUES (?, ?, ?, ?, ?)`,
		alert.ID,
		toMillis(alert.Timestamp),
		toMillis(alert.StreakStart),
		alert.Strategy,
		alert.Metric,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

// Recent implements Journal.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*posture.Alert, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, fired_at, streak_start, strategy, metric FROM alerts ORDER BY fired_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*posture.Alert

	for rows.Next() {
		var (
			alert               posture.Alert
			firedAt, streakFrom int64
		)

		if err = rows.Scan(&alert.ID, &firedAt, &streakFrom, &alert.Strategy, &alert.Metric); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		alert.Timestamp = fromMillis(firedAt)
		alert.StreakStart = fromMillis(streakFrom)
		alerts = append(alerts, &alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	return alerts, nil
}

// Close implements Journal.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms).UTC()
}
