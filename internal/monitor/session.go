package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/posture-alarm/internal/classifier"
	"github.com/oshokin/posture-alarm/internal/debounce"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/logger"
)

// Options configures a monitoring session.
type Options struct {
	// OpenStream acquires the video stream.
	OpenStream StreamOpener
	// OpenDetector loads the landmark detector.
	OpenDetector DetectorOpener
	// Ticks paces the loop. When nil a Ticker with TickInterval is used.
	Ticks TickSource
	// TickInterval is the sampling period for the default ticker.
	TickInterval time.Duration
	// Strategy classifies detected poses.
	Strategy classifier.Strategy
	// Debounce holds the alert timing parameters.
	Debounce debounce.Config
	// Sinks receive every fired alert in order.
	Sinks []Sink
	// NewID generates alert identifiers; defaults to random UUIDs.
	NewID func() string
}

var (
	// ErrAcquisition wraps failures to open the video stream or detector.
	// The session never starts ticking after such a failure.
	ErrAcquisition = errors.New("acquire posture source")
	// ErrAlreadyRunning is returned when Run is called on a running session.
	ErrAlreadyRunning = errors.New("session is already running")

	// errNoOpeners is returned when the source openers are missing.
	errNoOpeners = errors.New("stream and detector openers are required")
	// errNoStrategy is returned when no classifier is configured.
	errNoStrategy = errors.New("classification strategy is required")
	// errNoTicks is returned when neither a tick source nor an interval is set.
	errNoTicks = errors.New("tick source or positive tick interval is required")
)

// Snapshot is a point-in-time view of session counters.
type Snapshot struct {
	// Active is true between successful acquisition and teardown.
	Active bool
	// Ticks counts every tick processed.
	Ticks uint64
	// NotReady counts ticks skipped because the frame had no dimensions.
	NotReady uint64
	// Failed counts ticks skipped because the stream or detector errored.
	Failed uint64
	// Missed counts ticks where no classification was possible.
	Missed uint64
	// Classified counts ticks that produced a verdict.
	Classified uint64
	// Bad counts verdicts labelled bad.
	Bad uint64
	// Alerts counts fired alerts.
	Alerts uint64
	// LastMetric is the metric of the latest verdict.
	LastMetric float64
	// LastTick is the instant of the latest tick.
	LastTick time.Time
	// LastAlert is the instant of the latest alert, zero if none.
	LastAlert time.Time
	// Phase is the debounce phase after the latest tick.
	Phase debounce.Phase
	// Strategy is the classifier name.
	Strategy string
}

// Session is one monitoring session: acquisition, tick loop and teardown.
type Session struct {
	opts    Options
	machine *debounce.Machine
	running atomic.Bool

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewSession validates options and returns an idle session.
func NewSession(opts *Options) (*Session, error) {
	if opts.OpenStream == nil || opts.OpenDetector == nil {
		return nil, errNoOpeners
	}

	if opts.Strategy == nil {
		return nil, errNoStrategy
	}

	if opts.Ticks == nil && opts.TickInterval <= 0 {
		return nil, errNoTicks
	}

	if err := opts.Debounce.Validate(); err != nil {
		return nil, fmt.Errorf("invalid debounce settings: %w", err)
	}

	options := *opts
	if options.NewID == nil {
		options.NewID = uuid.NewString
	}

	return &Session{
		opts:     options,
		machine:  debounce.NewMachine(options.Debounce),
		snapshot: Snapshot{Strategy: options.Strategy.Name()},
	}, nil
}

// Snapshot returns the current counters. Safe for concurrent use.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot
}

// Run acquires the sources and processes ticks until ctx is cancelled or a
// source reports io.EOF. Resources are released on every return path.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ctx = logger.WithName(ctx, "sampling-loop")

	detector, err := s.opts.OpenDetector(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to load landmark detector", "error", err)

		return fmt.Errorf("%w: detector: %w", ErrAcquisition, err)
	}

	defer func() {
		if closeErr := detector.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close landmark detector", "error", closeErr)
		}
	}()

	stream, err := s.opts.OpenStream(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to open video stream", "error", err)

		return fmt.Errorf("%w: video stream: %w", ErrAcquisition, err)
	}

	defer func() {
		if stopErr := stream.Stop(); stopErr != nil {
			logger.WarnKV(ctx, "Failed to stop video stream", "error", stopErr)
		}
	}()

	ticks := s.opts.Ticks
	if ticks == nil {
		ticker := NewTicker(s.opts.TickInterval)
		defer ticker.Stop()

		ticks = ticker
	}

	s.update(func(snap *Snapshot) { snap.Active = true })
	defer s.update(func(snap *Snapshot) { snap.Active = false })

	logger.InfoKV(ctx, "Posture monitoring started",
		"strategy", s.opts.Strategy.Name(),
		"bad_threshold", s.opts.Debounce.BadThreshold.String(),
		"cooldown", s.opts.Debounce.Cooldown.String(),
		"max_missed_ticks", s.opts.Debounce.MaxMissedTicks,
	)

	for {
		now, err := ticks.Next(ctx)

		switch {
		case ctx.Err() != nil:
			logger.Info(ctx, "Context canceled, stopping posture monitoring")
			return nil
		case errors.Is(err, io.EOF):
			logger.Info(ctx, "Tick source exhausted, stopping posture monitoring")
			return nil
		case err != nil:
			return fmt.Errorf("next tick: %w", err)
		}

		if err = s.tick(ctx, stream, detector, now); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info(ctx, "Video stream ended, stopping posture monitoring")
				return nil
			}

			return err
		}
	}
}

// tick runs one frame through the pipeline. It returns only io.EOF;
// per-frame failures are counted and skipped.
func (s *Session) tick(ctx context.Context, stream VideoStream, detector Detector, now time.Time) error {
	frame, err := stream.Frame(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}

		// Teardown interrupted the read: nothing is counted.
		if ctx.Err() != nil {
			return nil
		}

		logger.DebugKV(ctx, "Frame unavailable", "error", err)
		s.update(func(snap *Snapshot) { s.countTick(snap, now); snap.Failed++ })

		return nil
	}

	// The source is still warming up; the debounce state stays untouched.
	if !frame.Ready() {
		s.update(func(snap *Snapshot) { s.countTick(snap, now); snap.NotReady++ })

		return nil
	}

	poses, err := detector.Detect(ctx, &frame, now)

	// Teardown began while the detector was busy: discard the result.
	if ctx.Err() != nil {
		return nil
	}

	if err != nil {
		logger.DebugKV(ctx, "Landmark detection failed", "error", err, "seq", frame.Seq)
		s.update(func(snap *Snapshot) { s.countTick(snap, now); snap.Failed++ })

		return nil
	}

	verdict, ok := classifier.Classify(s.opts.Strategy, poses, now)
	if !ok {
		s.machine.Skip()
		s.update(func(snap *Snapshot) { s.countTick(snap, now); snap.Missed++ })

		return nil
	}

	streakStart := s.machine.State().StreakStart
	fired := s.machine.Observe(verdict)

	s.update(func(snap *Snapshot) {
		s.countTick(snap, now)
		snap.Classified++
		snap.LastMetric = verdict.Metric

		if verdict.IsBad {
			snap.Bad++
		}

		if fired {
			snap.Alerts++
			snap.LastAlert = now
		}
	})

	if !fired {
		return nil
	}

	alert := &posture.Alert{
		ID:          s.opts.NewID(),
		Timestamp:   now,
		StreakStart: streakStart,
		Strategy:    s.opts.Strategy.Name(),
		Metric:      verdict.Metric,
	}

	logger.InfoKV(ctx, "Bad posture alert",
		"alert_id", alert.ID,
		"streak", alert.StreakDuration().String(),
		"metric", alert.Metric,
	)

	for _, sink := range s.opts.Sinks {
		sink(ctx, alert.Clone())
	}

	return nil
}

// countTick records the common per-tick fields. Called under s.mu.
func (s *Session) countTick(snap *Snapshot, now time.Time) {
	snap.Ticks++
	snap.LastTick = now
	snap.Phase = s.machine.Phase(now)
}

func (s *Session) update(fn func(snap *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.snapshot)
}
