package posture

import "math"

// LandmarkCount is the number of keypoints in a full-body pose.
const LandmarkCount = 33

// Landmark indices read by the classification strategies.
const (
	Nose          = 0
	LeftEar       = 7
	RightEar      = 8
	LeftShoulder  = 11
	RightShoulder = 12
	LeftHip       = 23
	RightHip      = 24
)

// Keypoint is an estimated joint position in normalized [0,1] frame coordinates.
type Keypoint struct {
	// X grows to the right of the frame.
	X float64 `yaml:"x"`
	// Y grows towards the bottom of the frame.
	Y float64 `yaml:"y"`
	// Z is the optional depth relative to the hips.
	Z float64 `yaml:"z,omitempty"`
	// Visibility is the detector confidence in [0,1], zero when unknown.
	Visibility float64 `yaml:"visibility,omitempty"`
}

// IsFinite reports whether all coordinates are usable numbers.
func (k Keypoint) IsFinite() bool {
	return isFinite(k.X) && isFinite(k.Y) && isFinite(k.Z)
}

// IsPlanarFinite reports whether X and Y are usable numbers; Z is ignored.
func (k Keypoint) IsPlanarFinite() bool {
	return isFinite(k.X) && isFinite(k.Y)
}

// Midpoint returns the point halfway between k and other.
func (k Keypoint) Midpoint(other Keypoint) Keypoint {
	return Keypoint{
		X: (k.X + other.X) / 2,
		Y: (k.Y + other.Y) / 2,
		Z: (k.Z + other.Z) / 2,
	}
}

// Pose is one detected body: a fixed-size array indexed by landmark.
type Pose [LandmarkCount]Keypoint

// At returns the keypoint for the landmark index, or false when out of range.
func (p *Pose) At(index int) (Keypoint, bool) {
	if p == nil || index < 0 || index >= LandmarkCount {
		return Keypoint{}, false
	}

	return p[index], true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
