package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/logger"
	"github.com/oshokin/posture-alarm/internal/repository/journal"
)

// HistoryOptions controls the history subcommand.
type HistoryOptions struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Limit caps the number of alerts printed; zero prints all.
	Limit int
	// Out receives one line per alert.
	Out io.Writer
}

// DefaultHistoryLimit is how many alerts the history subcommand prints by default.
const DefaultHistoryLimit = 20

// ErrJournalDisabled is returned by History when no journal is configured.
var ErrJournalDisabled = errors.New("alert journal is disabled")

// History prints the most recent journaled alerts, newest first.
func History(ctx context.Context, opts *HistoryOptions) error {
	ctx = logger.WithName(ctx, "posture-history")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	alertJournal, err := journal.Open(ctx, &settings.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	if alertJournal == nil {
		return ErrJournalDisabled
	}

	defer func() {
		if closeErr := alertJournal.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close journal", "error", closeErr)
		}
	}()

	alerts, err := alertJournal.Recent(ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	for _, alert := range alerts {
		_, err = fmt.Fprintf(opts.Out, "%s  %-12s  streak %-8s  metric %6.1f  %s\n",
			alert.Timestamp.Local().Format(time.DateTime),
			alert.Strategy,
			alert.StreakDuration().Round(time.Second),
			alert.Metric,
			alert.ID,
		)
		if err != nil {
			return fmt.Errorf("print alert: %w", err)
		}
	}

	return nil
}
