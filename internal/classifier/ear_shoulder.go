package classifier

import (
	"math"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// DefaultTiltThreshold is the ear-shoulder angle above which posture is bad.
const DefaultTiltThreshold = 50.0

// EarShoulder judges posture by the tilt of the shoulder-to-ear vector.
// Metric is |atan2(dy, dx)| in degrees.
type EarShoulder struct {
	ear       int
	shoulder  int
	side      Side
	threshold float64
}

// NewEarShoulder creates the strategy reading the given body side.
func NewEarShoulder(side Side) *EarShoulder {
	s := &EarShoulder{
		ear:       posture.LeftEar,
		shoulder:  posture.LeftShoulder,
		side:      SideLeft,
		threshold: DefaultTiltThreshold,
	}

	if side == SideRight {
		s.ear = posture.RightEar
		s.shoulder = posture.RightShoulder
		s.side = SideRight
	}

	return s
}

// Name implements Strategy.
func (s *EarShoulder) Name() string {
	return NameEarShoulder
}

// Side returns the body side the strategy reads.
func (s *EarShoulder) Side() Side {
	return s.side
}

// Classify implements Strategy.
func (s *EarShoulder) Classify(pose *posture.Pose) (Result, bool) {
	points, ok := keypoints(pose, s.shoulder, s.ear)
	if !ok {
		return Result{}, false
	}

	v := between(points[0], points[1])
	if !v.usable() {
		return Result{}, false
	}

	angle := math.Abs(degrees(math.Atan2(v.dy, v.dx)))

	return Result{
		IsBad:  angle > s.threshold,
		Metric: angle,
	}, true
}
