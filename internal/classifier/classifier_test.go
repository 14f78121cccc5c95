package classifier

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// uprightPose returns a frontal pose with the head straight above the shoulders.
func uprightPose() posture.Pose {
	var p posture.Pose

	p[posture.Nose] = posture.Keypoint{X: 0.5, Y: 0.2}
	p[posture.LeftEar] = posture.Keypoint{X: 0.55, Y: 0.2}
	p[posture.RightEar] = posture.Keypoint{X: 0.45, Y: 0.2}
	p[posture.LeftShoulder] = posture.Keypoint{X: 0.6, Y: 0.4}
	p[posture.RightShoulder] = posture.Keypoint{X: 0.4, Y: 0.4}
	p[posture.LeftHip] = posture.Keypoint{X: 0.58, Y: 0.8}
	p[posture.RightHip] = posture.Keypoint{X: 0.42, Y: 0.8}

	return p
}

// TestNew verifies strategy lookup by name and side.
func TestNew(t *testing.T) {
	t.Parallel()

	s, err := New(NameEarShoulder, "")
	require.NoError(t, err)
	require.Equal(t, NameEarShoulder, s.Name())
	require.Equal(t, SideLeft, s.(*EarShoulder).Side())

	s, err = New("EAR-SHOULDER", SideRight)
	require.NoError(t, err)
	require.Equal(t, SideRight, s.(*EarShoulder).Side())

	s, err = New(NameNeckNose, "")
	require.NoError(t, err)
	require.Equal(t, NameNeckNose, s.Name())

	_, err = New("slouch-o-meter", "")
	require.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = New(NameEarShoulder, "up")
	require.Error(t, err)

	require.ElementsMatch(t, []string{NameEarShoulder, NameNeckNose}, Names())
}

// TestEarShoulder_Angles checks the tilt angle and threshold.
func TestEarShoulder_Angles(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		ear    posture.Keypoint
		metric float64
		isBad  bool
	}{
		{name: "ear straight above", ear: posture.Keypoint{X: 0.6, Y: 0.2}, metric: 90, isBad: true},
		{name: "ear level with shoulder", ear: posture.Keypoint{X: 0.8, Y: 0.4}, metric: 0, isBad: false},
		{name: "ear at 45 degrees", ear: posture.Keypoint{X: 0.8, Y: 0.2}, metric: 45, isBad: false},
		{name: "ear behind shoulder", ear: posture.Keypoint{X: 0.4, Y: 0.4}, metric: 180, isBad: true},
	}

	s := NewEarShoulder(SideLeft)

	for _, tc := range cases {
		p := uprightPose()
		p[posture.LeftEar] = tc.ear

		result, ok := s.Classify(&p)
		require.True(t, ok, tc.name)
		require.InDelta(t, tc.metric, result.Metric, 1e-6, tc.name)
		require.Equal(t, tc.isBad, result.IsBad, tc.name)
	}
}

// TestEarShoulder_RightSide verifies the right side reads the right landmarks.
func TestEarShoulder_RightSide(t *testing.T) {
	t.Parallel()

	p := uprightPose()
	p[posture.RightEar] = posture.Keypoint{X: 0.6, Y: 0.4}

	result, ok := NewEarShoulder(SideRight).Classify(&p)
	require.True(t, ok)
	require.InDelta(t, 0, result.Metric, 1e-6)
	require.False(t, result.IsBad)
}

// TestEarShoulder_Degenerate verifies zero-length and NaN geometry abstain.
func TestEarShoulder_Degenerate(t *testing.T) {
	t.Parallel()

	s := NewEarShoulder(SideLeft)

	p := uprightPose()
	p[posture.LeftEar] = p[posture.LeftShoulder]

	_, ok := s.Classify(&p)
	require.False(t, ok)

	p = uprightPose()
	p[posture.LeftEar].X = math.NaN()

	_, ok = s.Classify(&p)
	require.False(t, ok)

	var empty posture.Pose

	_, ok = s.Classify(&empty)
	require.False(t, ok)
}

// TestClassify_IgnoresDepth keeps classifying when a 2D detector reports no depth.
func TestClassify_IgnoresDepth(t *testing.T) {
	t.Parallel()

	p := uprightPose()
	for i := range p {
		p[i].Z = math.NaN()
	}

	for _, s := range []Strategy{NewEarShoulder(SideLeft), NewEarShoulder(SideRight), NewNeckNose()} {
		_, ok := s.Classify(&p)
		require.True(t, ok, s.Name())
	}
}

// TestNeckNose_Upright verifies a straight head is good posture.
func TestNeckNose_Upright(t *testing.T) {
	t.Parallel()

	p := uprightPose()

	result, ok := NewNeckNose().Classify(&p)
	require.True(t, ok)
	require.False(t, result.IsBad)
	// Nose straight up, chest straight down.
	require.InDelta(t, 180, result.Metric, 1e-6)
}

// TestNeckNose_Forward verifies a head pushed diagonally forward is bad posture.
func TestNeckNose_Forward(t *testing.T) {
	t.Parallel()

	p := uprightPose()
	// 45 degrees from the neck: vertical share is about 0.707.
	p[posture.Nose] = posture.Keypoint{X: 0.7, Y: 0.2}

	result, ok := NewNeckNose().Classify(&p)
	require.True(t, ok)
	require.True(t, result.IsBad)
	require.InDelta(t, 135, result.Metric, 1e-6)
}

// TestNeckNose_Horizontal verifies a purely sideways nose falls outside the band.
func TestNeckNose_Horizontal(t *testing.T) {
	t.Parallel()

	p := uprightPose()
	p[posture.Nose] = posture.Keypoint{X: 0.8, Y: 0.4}

	result, ok := NewNeckNose().Classify(&p)
	require.True(t, ok)
	require.False(t, result.IsBad)
	require.InDelta(t, 90, result.Metric, 1e-6)
}

// TestNeckNose_Degenerate verifies collapsed vectors abstain.
func TestNeckNose_Degenerate(t *testing.T) {
	t.Parallel()

	s := NewNeckNose()

	// Nose on the neck.
	p := uprightPose()
	p[posture.Nose] = posture.Keypoint{X: 0.5, Y: 0.4}

	_, ok := s.Classify(&p)
	require.False(t, ok)

	// Hips on the shoulders.
	p = uprightPose()
	p[posture.LeftHip] = p[posture.LeftShoulder]
	p[posture.RightHip] = p[posture.RightShoulder]

	_, ok = s.Classify(&p)
	require.False(t, ok)

	p = uprightPose()
	p[posture.RightHip].Y = math.Inf(1)

	_, ok = s.Classify(&p)
	require.False(t, ok)
}

// TestClassify verifies the helper handles missing poses and stamps the tick.
func TestClassify(t *testing.T) {
	t.Parallel()

	now := time.Unix(42, 0)
	s := NewEarShoulder(SideLeft)

	_, ok := Classify(s, nil, now)
	require.False(t, ok)

	_, ok = Classify(nil, []posture.Pose{uprightPose()}, now)
	require.False(t, ok)

	c, ok := Classify(s, []posture.Pose{uprightPose()}, now)
	require.True(t, ok)
	require.Equal(t, now, c.Timestamp)
	require.True(t, c.IsBad)
	require.Greater(t, c.Metric, DefaultTiltThreshold)
}
