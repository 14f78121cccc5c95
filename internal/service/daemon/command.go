package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"

	api "github.com/oshokin/posture-alarm/internal/api/grpc/posture"
	"github.com/oshokin/posture-alarm/internal/broadcast"
	"github.com/oshokin/posture-alarm/internal/classifier"
	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/logger"
	"github.com/oshokin/posture-alarm/internal/monitor"
	"github.com/oshokin/posture-alarm/internal/service/common"
	"github.com/oshokin/posture-alarm/internal/source/replay"
)

// Options controls the posture-monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address from the settings.
	ListenAddress string
	// Recording overrides the landmark recording path from the settings.
	Recording string
	// Fast replays the recording on a simulated clock instead of real time.
	Fast bool
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
}

// watcherBuffer is how many alerts a slow gRPC watcher may lag behind.
const watcherBuffer = 16

// ErrNoSource is returned when no landmark source is configured.
var ErrNoSource = errors.New("no landmark source configured")

// Run loads the settings and monitors posture until ctx is cancelled or the
// source ends. A source that cannot be acquired is logged and the gRPC API
// stays up, reporting an inactive session, until ctx is cancelled.
//
//nolint:funlen // Setup is a flat sequence of steps.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "posture-monitor")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	if err = logger.Configure(settings.LogLevel, settings.LogEncoding); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	if !opts.AllowMultiple {
		if err = common.EnsureSingleInstance(nil); err != nil {
			return err
		}
	}

	strategy, err := classifier.New(settings.Detection.Strategy, classifier.Side(settings.Detection.Side))
	if err != nil {
		return fmt.Errorf("select strategy: %w", err)
	}

	host, err := common.DetectHost()
	if err != nil {
		logger.WarnKV(ctx, "Failed to detect host", "error", err)
	}

	hub := broadcast.New(watcherBuffer)
	defer hub.Close()

	sinks, err := buildSinks(ctx, settings, hub, host)
	if err != nil {
		return fmt.Errorf("build alert sinks: %w", err)
	}

	defer func() {
		if closeErr := sinks.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close alert sinks", "error", closeErr)
		}
	}()

	sessionOptions := &monitor.Options{
		TickInterval: settings.Detection.TickInterval,
		Strategy:     strategy,
		Debounce:     settings.DebounceConfig(),
		Sinks:        sinks.sinks,
	}
	attachSource(sessionOptions, &settings.Source)

	if opts.Fast {
		sessionOptions.Ticks = monitor.NewSimulatedClock(time.Now(), settings.Detection.TickInterval, -1)
	}

	session, err := monitor.NewSession(sessionOptions)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	logger.InfoKV(ctx, "Alert sinks ready", "sinks", sinks.names)

	stopServer, err := serve(ctx, settings.ListenAddress, session, hub)
	if err != nil {
		return err
	}
	defer stopServer()

	err = session.Run(ctx)

	switch {
	case errors.Is(err, monitor.ErrAcquisition) && settings.ListenAddress != "":
		logger.ErrorKV(ctx, "Posture monitoring is inactive", "error", err)
		<-ctx.Done()

		return nil
	case err != nil:
		return fmt.Errorf("run session: %w", err)
	}

	snap := session.Snapshot()
	logger.InfoKV(ctx, "Posture monitoring finished",
		"ticks", snap.Ticks,
		"classified", snap.Classified,
		"missed", snap.Missed,
		"alerts", snap.Alerts,
	)

	return nil
}

func applyOverrides(settings *config.Config, opts *Options) {
	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.Recording != "" {
		settings.Source.Recording = opts.Recording
	}
}

// attachSource wires the openers for the configured source. A single replay
// player serves as both video stream and detector.
func attachSource(opts *monitor.Options, source *config.Source) {
	if source.Recording == "" {
		opts.OpenStream = func(context.Context) (monitor.VideoStream, error) {
			return nil, ErrNoSource
		}
		opts.OpenDetector = func(context.Context) (monitor.Detector, error) {
			return nil, ErrNoSource
		}

		return
	}

	var player *replay.Player

	opts.OpenDetector = func(context.Context) (monitor.Detector, error) {
		var err error

		player, err = replay.Open(source.Recording, source.Loop)
		if err != nil {
			return nil, err
		}

		return player, nil
	}
	opts.OpenStream = func(context.Context) (monitor.VideoStream, error) {
		if player == nil {
			return nil, ErrNoSource
		}

		return player, nil
	}
}

// serve starts the gRPC API when address is set and returns a function that
// stops it and waits for Serve to return.
func serve(ctx context.Context, address string, service api.Service, hub *broadcast.Hub) (func(), error) {
	if address == "" {
		return func() {}, nil
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	api.Register(grpcServer, api.NewServer(service, hub))

	logger.InfoKV(ctx, "Posture API listening", "listen_address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			logger.ErrorKV(ctx, "Serve gRPC failed", "error", serveErr)
		}
	}()

	return func() {
		logger.Info(ctx, "Shutting down gRPC server")
		// Closing the hub ends watcher streams; GracefulStop waits for them.
		hub.Close()
		grpcServer.GracefulStop()
		<-done
		logger.Info(ctx, "GRPC server stopped")
	}, nil
}
