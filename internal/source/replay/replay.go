package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// Recording is the on-disk format.
//
//	width: 640
//	height: 480
//	frames:
//	  - not_ready: true
//	  - repeat: 250
//	    poses:
//	      - 7: {x: 0.5, y: 0.3}
//	        11: {x: 0.5, y: 0.5}
type Recording struct {
	// Width of every ready frame.
	Width int `yaml:"width"`
	// Height of every ready frame.
	Height int `yaml:"height"`
	// Frames in capture order.
	Frames []FrameSpec `yaml:"frames"`
}

// FrameSpec describes one frame, optionally repeated.
type FrameSpec struct {
	// Repeat emits the frame this many times; zero means once.
	Repeat int `yaml:"repeat"`
	// NotReady emits a frame without dimensions.
	NotReady bool `yaml:"not_ready"`
	// Poses are sparse landmark maps keyed by landmark index.
	Poses []map[int]posture.Keypoint `yaml:"poses"`
}

var (
	// ErrEmptyRecording is returned when a recording has no frames.
	ErrEmptyRecording = errors.New("recording has no frames")
	// ErrClosed is returned after the player was stopped or closed.
	ErrClosed = errors.New("player is closed")

	// errLandmarkIndex is returned for landmark indices outside the pose.
	errLandmarkIndex = errors.New("landmark index out of range")
	// errDimensions is returned for non-positive frame dimensions.
	errDimensions = errors.New("width and height must be positive")
)

// Player replays a recording frame by frame.
type Player struct {
	mu      sync.Mutex
	frames  []posture.Frame
	next    int
	seq     uint64
	loop    bool
	stopped bool
	closed  bool
	now     func() time.Time
}

// Load reads and validates a recording from disk.
func Load(path string) (*Recording, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	var rec Recording
	if err = yaml.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal recording: %w", err)
	}

	return &rec, nil
}

// NewPlayer expands the recording into frames. When loop is set the
// recording restarts instead of ending with io.EOF.
func NewPlayer(rec *Recording, loop bool) (*Player, error) {
	if rec.Width <= 0 || rec.Height <= 0 {
		return nil, errDimensions
	}

	frames := make([]posture.Frame, 0, len(rec.Frames))

	for i, spec := range rec.Frames {
		poses, err := toPoses(spec.Poses)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		frame := posture.Frame{Width: rec.Width, Height: rec.Height, Poses: poses}
		if spec.NotReady {
			frame.Width, frame.Height = 0, 0
		}

		for n := 0; n < max(spec.Repeat, 1); n++ {
			frames = append(frames, frame)
		}
	}

	if len(frames) == 0 {
		return nil, ErrEmptyRecording
	}

	return &Player{
		frames: frames,
		loop:   loop,
		now:    time.Now,
	}, nil
}

// Open loads a recording and returns a player for it.
func Open(path string, loop bool) (*Player, error) {
	rec, err := Load(path)
	if err != nil {
		return nil, err
	}

	return NewPlayer(rec, loop)
}

// Len returns the number of frames in one pass.
func (p *Player) Len() int {
	return len(p.frames)
}

// Frame returns the next frame, io.EOF at the end of a non-looping recording.
func (p *Player) Frame(ctx context.Context) (posture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return posture.Frame{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return posture.Frame{}, ErrClosed
	}

	if p.next >= len(p.frames) {
		if !p.loop {
			return posture.Frame{}, io.EOF
		}

		p.next = 0
	}

	frame := p.frames[p.next]
	p.next++
	p.seq++

	frame.Seq = p.seq
	frame.Timestamp = p.now()

	return frame, nil
}

// Detect returns the poses recorded for the frame.
func (p *Player) Detect(ctx context.Context, frame *posture.Frame, _ time.Time) ([]posture.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	return frame.Poses, nil
}

// Stop ends the video side of the player.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true

	return nil
}

// Close ends the detector side of the player.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	return nil
}

func toPoses(specs []map[int]posture.Keypoint) ([]posture.Pose, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	poses := make([]posture.Pose, 0, len(specs))

	for _, spec := range specs {
		var pose posture.Pose

		for index, keypoint := range spec {
			if index < 0 || index >= posture.LandmarkCount {
				return nil, fmt.Errorf("%w: %d", errLandmarkIndex, index)
			}

			pose[index] = keypoint
		}

		poses = append(poses, pose)
	}

	return poses, nil
}
