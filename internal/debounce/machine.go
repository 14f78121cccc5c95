package debounce

import (
	"time"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// Machine keeps the State of one session between ticks.
// It is not safe for concurrent use; the sampling loop is its only owner.
type Machine struct {
	cfg   Config
	state State
}

// NewMachine creates an idle machine.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Observe feeds one classification and reports whether an alert fires.
func (m *Machine) Observe(c posture.Classification) bool {
	next, fired := Step(m.cfg, m.state, c.IsBad, c.Timestamp)
	m.state = next

	return fired
}

// Skip records a tick without a classification.
func (m *Machine) Skip() {
	m.state = Miss(m.cfg, m.state)
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.state
}

// Config returns the timing parameters.
func (m *Machine) Config() Config {
	return m.cfg
}

// Phase returns the conceptual phase at now.
func (m *Machine) Phase(now time.Time) Phase {
	return PhaseAt(m.cfg, m.state, now)
}
