package posture

import "time"

// Classification is the per-frame posture verdict fed to the debounce machine.
type Classification struct {
	// Timestamp is the tick instant the frame was classified at.
	Timestamp time.Time
	// IsBad is the boolean label.
	IsBad bool
	// Metric is the raw diagnostic value computed by the strategy.
	Metric float64
}

// Alert is emitted at most once per cooldown window when bad posture persists.
type Alert struct {
	// ID uniquely identifies the alert across sinks.
	ID string
	// Timestamp is the tick instant the alert fired at.
	Timestamp time.Time
	// StreakStart is when the bad streak that triggered the alert began.
	StreakStart time.Time
	// Strategy names the classifier that produced the streak.
	Strategy string
	// Metric is the metric of the classification that fired the alert.
	Metric float64
}

// StreakDuration returns how long the posture had been bad when the alert fired.
func (a *Alert) StreakDuration() time.Duration {
	return a.Timestamp.Sub(a.StreakStart)
}

// Clone returns a copy of the alert to avoid leaking references between sinks.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}
