package daemon

import (
	"context"
	"errors"
	"io"

	"github.com/oshokin/posture-alarm/internal/broadcast"
	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/logger"
	"github.com/oshokin/posture-alarm/internal/monitor"
	"github.com/oshokin/posture-alarm/internal/notify"
	"github.com/oshokin/posture-alarm/internal/publish"
	"github.com/oshokin/posture-alarm/internal/publish/mqtt"
	"github.com/oshokin/posture-alarm/internal/publish/redisstream"
	"github.com/oshokin/posture-alarm/internal/publish/webhook"
	"github.com/oshokin/posture-alarm/internal/repository/journal"
	"github.com/oshokin/posture-alarm/internal/service/common"
)

// sinkSet is the ordered list of alert sinks and the resources behind them.
type sinkSet struct {
	sinks   []monitor.Sink
	closers []io.Closer
	names   []string
}

func (s *sinkSet) add(name string, sink monitor.Sink, closer io.Closer) {
	s.names = append(s.names, name)
	s.sinks = append(s.sinks, sink)

	if closer != nil {
		s.closers = append(s.closers, closer)
	}
}

// Close releases every resource in reverse order of acquisition.
func (s *sinkSet) Close() error {
	var errs []error

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// logSink records every alert in the process log.
func logSink(ctx context.Context, alert *posture.Alert) {
	logger.WarnKV(ctx, "Bad posture alert",
		"alert_id", alert.ID,
		"strategy", alert.Strategy,
		"metric", alert.Metric,
		"streak", alert.StreakDuration().String(),
	)
}

// buildSinks creates the sinks enabled in settings. Remote publishers that
// cannot connect are logged and left out so the monitor keeps running.
func buildSinks(ctx context.Context, settings *config.Config, hub *broadcast.Hub, host *common.Host) (*sinkSet, error) {
	set := new(sinkSet)
	set.add("log", logSink, nil)
	set.add("watchers", func(_ context.Context, alert *posture.Alert) { hub.Publish(alert) }, nil)

	if settings.Notifier.Enabled {
		notifier, err := notify.New(settings.Notifier.Command, settings.Notifier.Title, settings.Notifier.Message, nil)
		if err != nil {
			logger.WarnKV(ctx, "Desktop notifications disabled", "error", err)
		} else {
			set.add("notifier", notifier.Sink, nil)
		}
	}

	alertJournal, err := journal.Open(ctx, &settings.Journal)
	if err != nil {
		_ = set.Close()

		return nil, err
	}

	if alertJournal != nil {
		set.add("journal", journal.Sink(alertJournal), alertJournal)
	}

	for _, publisher := range connectPublishers(ctx, settings, host) {
		set.add(publisher.Name(), publish.Sink(publisher), publisher)
	}

	return set, nil
}

func connectPublishers(ctx context.Context, settings *config.Config, host *common.Host) []publish.Publisher {
	var publishers []publish.Publisher

	if settings.MQTT.Broker != "" {
		publisher, err := mqtt.Connect(&settings.MQTT, settings.Timeout, host)
		if err != nil {
			logger.WarnKV(ctx, "MQTT publisher disabled", "broker", settings.MQTT.Broker, "error", err)
		} else {
			publishers = append(publishers, publisher)
		}
	}

	if settings.Redis.Addr != "" {
		publisher, err := redisstream.Connect(ctx, &settings.Redis, settings.Timeout, host)
		if err != nil {
			logger.WarnKV(ctx, "Redis publisher disabled", "addr", settings.Redis.Addr, "error", err)
		} else {
			publishers = append(publishers, publisher)
		}
	}

	if settings.Webhook.URL != "" {
		publishers = append(publishers, webhook.New(&settings.Webhook, settings.Timeout, host))
	}

	return publishers
}
