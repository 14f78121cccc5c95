package monitor

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/posture-alarm/internal/classifier"
	"github.com/oshokin/posture-alarm/internal/debounce"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

var (
	errTestCamera = errors.New("camera permission denied")
	errTestModel  = errors.New("model download failed")
	errTestFrame  = errors.New("frame dropped")
)

// epoch is the simulated session start.
var epoch = time.Unix(1_700_000_000, 0) //nolint:gochecknoglobals // Test fixture.

// pose builds a pose whose left ear sits straight above (bad) or beside (good) the shoulder.
func pose(isBad bool) posture.Pose {
	var p posture.Pose

	p[posture.LeftShoulder] = posture.Keypoint{X: 0.5, Y: 0.5}
	p[posture.LeftEar] = posture.Keypoint{X: 0.7, Y: 0.5}

	if isBad {
		p[posture.LeftEar] = posture.Keypoint{X: 0.5, Y: 0.3}
	}

	return p
}

// fakeStream yields ready frames unless notReady says otherwise.
type fakeStream struct {
	mu       sync.Mutex
	seq      uint64
	notReady func(seq uint64) bool
	failAt   map[uint64]bool
	endAt    uint64
	stops    int
}

func (f *fakeStream) Frame(context.Context) (posture.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++

	if f.endAt > 0 && f.seq >= f.endAt {
		return posture.Frame{}, io.EOF
	}

	if f.failAt[f.seq] {
		return posture.Frame{}, errTestFrame
	}

	frame := posture.Frame{Seq: f.seq, Width: 640, Height: 480}
	if f.notReady != nil && f.notReady(f.seq) {
		frame.Width, frame.Height = 0, 0
	}

	return frame, nil
}

func (f *fakeStream) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++

	return nil
}

// fakeDetector answers with the poses returned by fn for each frame.
type fakeDetector struct {
	mu     sync.Mutex
	fn     func(frame *posture.Frame) []posture.Pose
	calls  int
	closes int
}

func (f *fakeDetector) Detect(_ context.Context, frame *posture.Frame, _ time.Time) ([]posture.Pose, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	return f.fn(frame), nil
}

func (f *fakeDetector) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes++

	return nil
}

// alwaysBad answers every frame with a bad pose.
func alwaysBad(*posture.Frame) []posture.Pose {
	return []posture.Pose{pose(true)}
}

// recorder collects alerts delivered to a sink.
type recorder struct {
	mu     sync.Mutex
	alerts []*posture.Alert
}

func (r *recorder) sink(_ context.Context, alert *posture.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = append(r.alerts, alert)
}

func (r *recorder) offsets(start time.Time) []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]time.Duration, 0, len(r.alerts))
	for _, a := range r.alerts {
		result = append(result, a.Timestamp.Sub(start))
	}

	return result
}

// newTestSession wires fakes into a session driven by a simulated clock.
func newTestSession(
	t *testing.T,
	stream VideoStream,
	detector *fakeDetector,
	ticks TickSource,
	rec *recorder,
) *Session {
	t.Helper()

	s, err := NewSession(&Options{
		OpenStream:   func(context.Context) (VideoStream, error) { return stream, nil },
		OpenDetector: func(context.Context) (Detector, error) { return detector, nil },
		Ticks:        ticks,
		Strategy:     classifier.NewEarShoulder(classifier.SideLeft),
		Debounce:     debounce.DefaultConfig(),
		Sinks:        []Sink{rec.sink},
		NewID:        func() string { return "alert-id" },
	})
	require.NoError(t, err)

	return s
}

// TestNewSession_Validation rejects incomplete options.
func TestNewSession_Validation(t *testing.T) {
	t.Parallel()

	openStream := func(context.Context) (VideoStream, error) { return new(fakeStream), nil }
	openDetector := func(context.Context) (Detector, error) { return new(fakeDetector), nil }
	strategy := classifier.NewNeckNose()

	_, err := NewSession(&Options{Strategy: strategy, TickInterval: time.Second})
	require.Error(t, err)

	_, err = NewSession(&Options{OpenStream: openStream, OpenDetector: openDetector, TickInterval: time.Second})
	require.Error(t, err)

	_, err = NewSession(&Options{OpenStream: openStream, OpenDetector: openDetector, Strategy: strategy})
	require.Error(t, err)

	_, err = NewSession(&Options{
		OpenStream:   openStream,
		OpenDetector: openDetector,
		Strategy:     strategy,
		TickInterval: time.Second,
		Debounce:     debounce.Config{Cooldown: -time.Second},
	})
	require.Error(t, err)

	s, err := NewSession(&Options{
		OpenStream:   openStream,
		OpenDetector: openDetector,
		Strategy:     strategy,
		TickInterval: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, classifier.NameNeckNose, s.Snapshot().Strategy)
	require.False(t, s.Snapshot().Active)
}

// TestSession_SustainedBadPosture fires once at the threshold and releases resources.
func TestSession_SustainedBadPosture(t *testing.T) {
	t.Parallel()

	var (
		stream   = new(fakeStream)
		detector = &fakeDetector{fn: alwaysBad}
		rec      = new(recorder)
		ticks    = NewSimulatedClock(epoch, 100*time.Millisecond, 251)
		s        = newTestSession(t, stream, detector, ticks, rec)
	)

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []time.Duration{20 * time.Second}, rec.offsets(epoch))

	alert := rec.alerts[0]
	require.Equal(t, "alert-id", alert.ID)
	require.Equal(t, epoch, alert.StreakStart)
	require.Equal(t, classifier.NameEarShoulder, alert.Strategy)
	require.InDelta(t, 90, alert.Metric, 1e-6)

	snap := s.Snapshot()
	require.False(t, snap.Active)
	require.Equal(t, uint64(251), snap.Ticks)
	require.Equal(t, uint64(251), snap.Bad)
	require.Equal(t, uint64(1), snap.Alerts)
	require.Equal(t, epoch.Add(20*time.Second), snap.LastAlert)

	require.Equal(t, 1, stream.stops)
	require.Equal(t, 1, detector.closes)
}

// TestSession_NotReadyFramesAreSkipped keeps warm-up frames out of the debounce state.
func TestSession_NotReadyFramesAreSkipped(t *testing.T) {
	t.Parallel()

	var (
		stream   = &fakeStream{notReady: func(seq uint64) bool { return seq <= 10 }}
		detector = &fakeDetector{fn: alwaysBad}
		rec      = new(recorder)
		ticks    = NewSimulatedClock(epoch, 100*time.Millisecond, 300)
		s        = newTestSession(t, stream, detector, ticks, rec)
	)

	require.NoError(t, s.Run(context.Background()))

	// The streak starts at the eleventh tick (1s in).
	require.Equal(t, []time.Duration{21 * time.Second}, rec.offsets(epoch))
	require.Equal(t, uint64(10), s.Snapshot().NotReady)
	require.Equal(t, 290, detector.calls)
}

// TestSession_MissingPoseKeepsStreak tolerates a short gap without detections.
func TestSession_MissingPoseKeepsStreak(t *testing.T) {
	t.Parallel()

	var (
		stream   = new(fakeStream)
		detector = &fakeDetector{fn: func(frame *posture.Frame) []posture.Pose {
			if frame.Seq > 50 && frame.Seq <= 55 {
				return nil
			}

			return alwaysBad(frame)
		}}
		rec   = new(recorder)
		ticks = NewSimulatedClock(epoch, 100*time.Millisecond, 251)
		s     = newTestSession(t, stream, detector, ticks, rec)
	)

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []time.Duration{20 * time.Second}, rec.offsets(epoch))
	require.Equal(t, uint64(5), s.Snapshot().Missed)
}

// TestSession_GoodPostureInterrupts restarts accrual after a good frame.
func TestSession_GoodPostureInterrupts(t *testing.T) {
	t.Parallel()

	var (
		stream   = new(fakeStream)
		detector = &fakeDetector{fn: func(frame *posture.Frame) []posture.Pose {
			// Tick 151 is 15s in.
			return []posture.Pose{pose(frame.Seq != 151)}
		}}
		rec   = new(recorder)
		ticks = NewSimulatedClock(epoch, 100*time.Millisecond, 400)
		s     = newTestSession(t, stream, detector, ticks, rec)
	)

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []time.Duration{35100 * time.Millisecond}, rec.offsets(epoch))
}

// TestSession_FrameErrorsAndEOF counts failed frames and ends cleanly on io.EOF.
func TestSession_FrameErrorsAndEOF(t *testing.T) {
	t.Parallel()

	var (
		stream   = &fakeStream{failAt: map[uint64]bool{2: true, 3: true}, endAt: 11}
		detector = &fakeDetector{fn: alwaysBad}
		rec      = new(recorder)
		ticks    = NewSimulatedClock(epoch, 100*time.Millisecond, -1)
		s        = newTestSession(t, stream, detector, ticks, rec)
	)

	require.NoError(t, s.Run(context.Background()))

	snap := s.Snapshot()
	require.Equal(t, uint64(10), snap.Ticks)
	require.Equal(t, uint64(2), snap.Failed)
	require.Equal(t, uint64(8), snap.Classified)
	require.Equal(t, debounce.PhaseAccruing, snap.Phase)
	require.Equal(t, 1, stream.stops)
}

// TestSession_DetectorAcquisitionFailure never opens the stream.
func TestSession_DetectorAcquisitionFailure(t *testing.T) {
	t.Parallel()

	streamOpened := false

	s, err := NewSession(&Options{
		OpenStream: func(context.Context) (VideoStream, error) {
			streamOpened = true

			return new(fakeStream), nil
		},
		OpenDetector: func(context.Context) (Detector, error) { return nil, errTestModel },
		Strategy:     classifier.NewEarShoulder(classifier.SideLeft),
		TickInterval: time.Second,
	})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.ErrorIs(t, err, ErrAcquisition)
	require.ErrorIs(t, err, errTestModel)
	require.False(t, streamOpened)
	require.Zero(t, s.Snapshot().Ticks)
}

// TestSession_StreamAcquisitionFailure releases the already loaded detector.
func TestSession_StreamAcquisitionFailure(t *testing.T) {
	t.Parallel()

	detector := &fakeDetector{fn: alwaysBad}

	s, err := NewSession(&Options{
		OpenStream:   func(context.Context) (VideoStream, error) { return nil, errTestCamera },
		OpenDetector: func(context.Context) (Detector, error) { return detector, nil },
		Strategy:     classifier.NewEarShoulder(classifier.SideLeft),
		TickInterval: time.Second,
	})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.ErrorIs(t, err, ErrAcquisition)
	require.ErrorIs(t, err, errTestCamera)
	require.Equal(t, 1, detector.closes)
	require.Zero(t, detector.calls)
}

// TestSession_TeardownDiscardsInFlightDetection drops results that arrive after cancellation.
func TestSession_TeardownDiscardsInFlightDetection(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		stream   = new(fakeStream)
		detector = &fakeDetector{fn: func(frame *posture.Frame) []posture.Pose {
			if frame.Seq == 3 {
				cancel()
			}

			return alwaysBad(frame)
		}}
		rec   = new(recorder)
		ticks = NewSimulatedClock(epoch, 100*time.Millisecond, -1)
		s     = newTestSession(t, stream, detector, ticks, rec)
	)

	require.NoError(t, s.Run(ctx))

	snap := s.Snapshot()
	require.Equal(t, uint64(2), snap.Ticks)
	require.Equal(t, 3, detector.calls)
	require.Equal(t, 1, detector.closes)
	require.Equal(t, 1, stream.stops)
}

// interruptedStream cancels the session while reading frame cancelAt and
// reports the cancellation, like a source blocked on the camera.
type interruptedStream struct {
	*fakeStream

	cancelAt uint64
	cancel   context.CancelFunc
}

func (s *interruptedStream) Frame(ctx context.Context) (posture.Frame, error) {
	frame, err := s.fakeStream.Frame(ctx)
	if err != nil || frame.Seq != s.cancelAt {
		return frame, err
	}

	s.cancel()

	return posture.Frame{}, ctx.Err()
}

// TestSession_TeardownDuringFrameRead leaves the counters untouched.
func TestSession_TeardownDuringFrameRead(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		stream   = &interruptedStream{fakeStream: new(fakeStream), cancelAt: 3, cancel: cancel}
		detector = &fakeDetector{fn: alwaysBad}
		ticks    = NewSimulatedClock(epoch, 100*time.Millisecond, -1)
		s        = newTestSession(t, stream, detector, ticks, new(recorder))
	)

	require.NoError(t, s.Run(ctx))

	snap := s.Snapshot()
	require.Equal(t, uint64(2), snap.Ticks)
	require.Zero(t, snap.Failed)
	require.Equal(t, epoch.Add(100*time.Millisecond), snap.LastTick)
	require.Equal(t, 2, detector.calls)
	require.Equal(t, 1, stream.stops)
}

// TestSession_AlreadyRunning rejects a concurrent Run.
func TestSession_AlreadyRunning(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, new(fakeStream), &fakeDetector{fn: alwaysBad}, NewSimulatedClock(epoch, time.Second, 1), new(recorder))
	s.running.Store(true)

	require.ErrorIs(t, s.Run(context.Background()), ErrAlreadyRunning)
}

// TestSimulatedClock verifies stepping and exhaustion.
func TestSimulatedClock(t *testing.T) {
	t.Parallel()

	c := NewSimulatedClock(epoch, time.Second, 2)

	ts, err := c.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, epoch, ts)

	ts, err = c.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, epoch.Add(time.Second), ts)

	_, err = c.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewSimulatedClock(epoch, time.Second, -1).Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
