package posture

import "time"

// Frame is a single video frame as seen by the sampling loop.
// Poses is filled by detectors that annotate frames ahead of time
// (recordings); live detectors leave it empty and return poses from Detect.
type Frame struct {
	// Seq is the monotonically increasing capture sequence number.
	Seq uint64
	// Width of the frame in pixels, zero until the source is ready.
	Width int
	// Height of the frame in pixels, zero until the source is ready.
	Height int
	// Timestamp is the capture time.
	Timestamp time.Time
	// Poses holds pre-computed detections, if any.
	Poses []Pose
}

// Ready reports whether the frame has valid dimensions.
func (f *Frame) Ready() bool {
	return f != nil && f.Width > 0 && f.Height > 0
}
