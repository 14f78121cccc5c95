package classifier

import (
	"math"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// Vertical component bounds of the neck-to-nose vector; values strictly
// between them mean the head is pushed forward.
const (
	DefaultVerticalLow  = 0.2
	DefaultVerticalHigh = 0.8
)

// NeckNose compares the neck-to-chest and neck-to-nose directions.
//
// The neck is the shoulder midpoint and the chest sits halfway between the
// neck and the hip midpoint. Metric is the angle between both vectors in
// degrees; the label depends only on the vertical share of neck-to-nose.
type NeckNose struct {
	low  float64
	high float64
}

// NewNeckNose creates the strategy with default bounds.
func NewNeckNose() *NeckNose {
	return &NeckNose{
		low:  DefaultVerticalLow,
		high: DefaultVerticalHigh,
	}
}

// Name implements Strategy.
func (s *NeckNose) Name() string {
	return NameNeckNose
}

// Classify implements Strategy.
func (s *NeckNose) Classify(pose *posture.Pose) (Result, bool) {
	points, ok := keypoints(pose,
		posture.Nose,
		posture.LeftShoulder, posture.RightShoulder,
		posture.LeftHip, posture.RightHip,
	)
	if !ok {
		return Result{}, false
	}

	var (
		nose  = points[0]
		neck  = points[1].Midpoint(points[2])
		hips  = points[3].Midpoint(points[4])
		chest = neck.Midpoint(hips)
		v1    = between(neck, chest)
		v2    = between(neck, nose)
	)

	if !v1.usable() || !v2.usable() {
		return Result{}, false
	}

	cos := v1.dot(v2) / (v1.length() * v2.length())
	cos = math.Max(-1, math.Min(1, cos))
	vertical := math.Abs(v2.dy) / v2.length()

	return Result{
		IsBad:  vertical > s.low && vertical < s.high,
		Metric: degrees(math.Acos(cos)),
	}, true
}
