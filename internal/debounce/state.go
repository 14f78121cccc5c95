package debounce

import "time"

// Phase is the conceptual state of the machine, used for diagnostics.
type Phase int

// Phases in the order a sustained bad streak walks through them.
const (
	PhaseIdle Phase = iota
	PhaseAccruing
	PhaseEligible
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccruing:
		return "accruing"
	case PhaseEligible:
		return "eligible"
	default:
		return "unknown"
	}
}

// State is the debounce state of one monitoring session.
//
// StreakStart is meaningful only while Accruing is true. LastAlert is
// meaningful only once HasAlerted is true; before the first alert the
// cooldown counts as satisfied.
type State struct {
	// StreakStart is the first bad tick of the current streak.
	StreakStart time.Time
	// Accruing is true while a bad streak is in progress.
	Accruing bool
	// LastAlert is the instant of the most recent alert.
	LastAlert time.Time
	// HasAlerted is true once any alert has fired in this session.
	HasAlerted bool
	// Missed counts consecutive ticks without a classification.
	Missed int
}

// Step applies one classified tick and reports whether an alert fires now.
//
// A good verdict always returns to idle. A bad verdict starts a streak, or,
// once the streak is at least BadThreshold old and the last alert is at
// least Cooldown old, fires and restarts the streak at now.
func Step(cfg Config, s State, isBad bool, now time.Time) (State, bool) {
	s.Missed = 0

	if !isBad {
		s.Accruing = false
		s.StreakStart = time.Time{}

		return s, false
	}

	if !s.Accruing {
		s.Accruing = true
		s.StreakStart = now

		return s, false
	}

	if now.Sub(s.StreakStart) < cfg.BadThreshold || !cooledDown(cfg, s, now) {
		return s, false
	}

	s.LastAlert = now
	s.HasAlerted = true
	s.StreakStart = now

	return s, true
}

// Miss applies one tick without a classification (no pose or unusable
// geometry). The streak is kept for up to MaxMissedTicks consecutive misses
// and dropped on the next one.
func Miss(cfg Config, s State) State {
	if !s.Accruing {
		s.Missed = 0

		return s
	}

	s.Missed++
	if s.Missed > cfg.MaxMissedTicks {
		s.Accruing = false
		s.StreakStart = time.Time{}
		s.Missed = 0
	}

	return s
}

// PhaseAt returns the conceptual phase of s at instant now.
func PhaseAt(cfg Config, s State, now time.Time) Phase {
	switch {
	case !s.Accruing:
		return PhaseIdle
	case now.Sub(s.StreakStart) < cfg.BadThreshold:
		return PhaseAccruing
	default:
		return PhaseEligible
	}
}

func cooledDown(cfg Config, s State, now time.Time) bool {
	return !s.HasAlerted || now.Sub(s.LastAlert) >= cfg.Cooldown
}
