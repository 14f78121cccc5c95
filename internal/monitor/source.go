package monitor

import (
	"context"
	"time"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// VideoStream yields the most recent captured frame.
type VideoStream interface {
	// Frame returns the current frame. io.EOF ends the session.
	Frame(ctx context.Context) (posture.Frame, error)
	// Stop releases the underlying device.
	Stop() error
}

// Detector extracts body landmarks from a frame.
type Detector interface {
	// Detect returns zero or more poses found in frame at timestamp ts.
	Detect(ctx context.Context, frame *posture.Frame, ts time.Time) ([]posture.Pose, error)
	// Close releases the model.
	Close() error
}

// TickSource paces the loop.
type TickSource interface {
	// Next blocks until the next tick and returns its instant.
	// io.EOF ends the session.
	Next(ctx context.Context) (time.Time, error)
}

// Sink receives fired alerts synchronously on the loop goroutine.
type Sink func(ctx context.Context, alert *posture.Alert)

// StreamOpener acquires the video stream at session start.
type StreamOpener func(ctx context.Context) (VideoStream, error)

// DetectorOpener loads the landmark detector at session start.
type DetectorOpener func(ctx context.Context) (Detector, error)
