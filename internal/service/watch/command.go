package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/logger"
	"github.com/oshokin/posture-alarm/internal/notify"
	"github.com/oshokin/posture-alarm/internal/service/common"
)

// Options controls the watcher behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress overrides the monitor address from the settings.
	ServerAddress string
	// RetryInterval is the delay before reconnecting a broken stream.
	RetryInterval time.Duration
	// Status prints the session counters once and exits.
	Status bool
	// Notify shows a desktop notification for every received alert.
	Notify bool
}

// DefaultRetryInterval is the delay between reconnection attempts.
const DefaultRetryInterval = 5 * time.Second

// Run follows the monitor's alerts until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "posture-watch")

	settings, err := loadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err = logger.Configure(settings.LogLevel, settings.LogEncoding); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	serverAddress := settings.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	if serverAddress == "" {
		serverAddress = config.DefaultListenAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(settings.Timeout))
	if err != nil {
		return fmt.Errorf("dial monitor: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	if opts.Status {
		return printStatus(ctx, client)
	}

	handler, err := newHandler(ctx, settings, opts.Notify)
	if err != nil {
		return err
	}

	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	logger.InfoKV(ctx, "Watching posture alerts", "server_address", serverAddress)

	return follow(ctx, client, handler, opts.RetryInterval)
}

// loadSettings reads the settings file; a missing default file yields defaults.
func loadSettings(path string) (*config.Config, error) {
	settings, err := config.Load(path)
	if err == nil {
		return settings, nil
	}

	if (path == "" || path == config.DefaultConfigFilename) && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}

	return nil, fmt.Errorf("load settings: %w", err)
}

// follow keeps a stream open, reconnecting after failures.
func follow(ctx context.Context, client *common.Client, handler common.AlertHandler, retry time.Duration) error {
	for {
		err := client.WatchAlerts(ctx, handler)

		switch {
		case ctx.Err() != nil:
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case err != nil:
			logger.WarnKV(ctx, "Alert stream failed", "error", err, "retry_in", retry.String())
		default:
			logger.InfoKV(ctx, "Monitor closed the alert stream", "retry_in", retry.String())
		}

		timer := time.NewTimer(retry)

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-timer.C:
		}
	}
}

// newHandler logs each alert and optionally shows a notification.
func newHandler(ctx context.Context, settings *config.Config, withNotifications bool) (common.AlertHandler, error) {
	var notifier *notify.Notifier

	if withNotifications {
		var err error

		notifier, err = notify.New(settings.Notifier.Command, settings.Notifier.Title, settings.Notifier.Message, nil)
		if err != nil {
			return nil, fmt.Errorf("create notifier: %w", err)
		}
	}

	return func(alert *posture.Alert) error {
		logger.InfoKV(ctx, "Bad posture alert",
			"alert_id", alert.ID,
			"at", alert.Timestamp.Format(time.RFC3339),
			"streak", alert.StreakDuration().String(),
			"strategy", alert.Strategy,
			"metric", alert.Metric,
		)

		if notifier != nil {
			notifier.Sink(ctx, alert)
		}

		return nil
	}, nil
}

func printStatus(ctx context.Context, client *common.Client) error {
	status, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	state := "inactive"
	if status.Active {
		state = "active"
	}

	logger.InfoKV(ctx, "Monitor status: "+state,
		"strategy", status.Strategy,
		"phase", status.Phase,
		"ticks", status.Ticks,
		"classified", status.Classified,
		"missed", status.Missed,
		"bad", status.Bad,
		"alerts", status.Alerts,
		"watchers", status.Watchers,
		"last_metric", status.LastMetric,
	)

	return nil
}
