package classifier

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// Result is the output of a single strategy evaluation.
type Result struct {
	// IsBad is the posture label.
	IsBad bool
	// Metric is the raw diagnostic value, independent of the label.
	Metric float64
}

// Strategy classifies a single pose.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string
	// Classify returns the verdict or ok=false when the pose cannot be judged.
	Classify(pose *posture.Pose) (result Result, ok bool)
}

// Strategy names accepted by New.
const (
	NameEarShoulder = "ear-shoulder"
	NameNeckNose    = "neck-nose"
)

// Side selects which body side a single-sided strategy reads.
type Side string

// Supported sides.
const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ErrUnknownStrategy is returned by New for unregistered strategy names.
var ErrUnknownStrategy = errors.New("unknown classification strategy")

// errUnknownSide is returned by New for unsupported sides.
var errUnknownSide = errors.New("unknown body side")

// Names lists the registered strategy names.
func Names() []string {
	return []string{NameEarShoulder, NameNeckNose}
}

// New builds a strategy by name. Side only affects ear-shoulder and
// defaults to left when empty.
//
//nolint:ireturn // Strategies are selected at runtime.
func New(name string, side Side) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameEarShoulder, "":
		switch side {
		case "", SideLeft:
			return NewEarShoulder(SideLeft), nil
		case SideRight:
			return NewEarShoulder(SideRight), nil
		default:
			return nil, fmt.Errorf("%w: %q", errUnknownSide, side)
		}
	case NameNeckNose:
		return NewNeckNose(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Classify evaluates the first detected pose at the tick instant now.
// It returns ok=false when nothing was detected or the strategy abstains.
func Classify(strategy Strategy, poses []posture.Pose, now time.Time) (posture.Classification, bool) {
	if strategy == nil || len(poses) == 0 {
		return posture.Classification{}, false
	}

	result, ok := strategy.Classify(&poses[0])
	if !ok {
		return posture.Classification{}, false
	}

	return posture.Classification{
		Timestamp: now,
		IsBad:     result.IsBad,
		Metric:    result.Metric,
	}, true
}

// vector is a 2D displacement in normalized frame coordinates.
type vector struct {
	dx float64
	dy float64
}

func between(from, to posture.Keypoint) vector {
	return vector{dx: to.X - from.X, dy: to.Y - from.Y}
}

func (v vector) length() float64 {
	return math.Hypot(v.dx, v.dy)
}

func (v vector) dot(o vector) float64 {
	return v.dx*o.dx + v.dy*o.dy
}

// usable reports whether v has a finite, non-zero length.
func (v vector) usable() bool {
	l := v.length()

	return l > epsilon && !math.IsNaN(l) && !math.IsInf(l, 0)
}

// epsilon is the smallest vector length considered non-degenerate.
const epsilon = 1e-9

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// keypoints fetches the requested landmarks, failing on any with a non-finite
// X or Y. Depth is optional and never read.
func keypoints(pose *posture.Pose, indices ...int) ([]posture.Keypoint, bool) {
	points := make([]posture.Keypoint, 0, len(indices))

	for _, index := range indices {
		k, ok := pose.At(index)
		if !ok || !k.IsPlanarFinite() {
			return nil, false
		}

		points = append(points, k)
	}

	return points, true
}
