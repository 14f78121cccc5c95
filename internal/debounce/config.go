package debounce

import (
	"errors"
	"time"
)

// Defaults matching the desktop application behaviour.
const (
	// DefaultBadThreshold is how long posture must stay bad before an alert.
	DefaultBadThreshold = 20 * time.Second
	// DefaultCooldown is the minimum time between two alerts.
	DefaultCooldown = 90 * time.Second
	// DefaultMaxMissedTicks is how many consecutive ticks without a pose
	// a bad streak survives.
	DefaultMaxMissedTicks = 15
)

// Config holds the timing parameters of the machine.
type Config struct {
	// BadThreshold is the minimum streak duration before an alert is eligible.
	BadThreshold time.Duration
	// Cooldown is the minimum time since the last alert before another fires.
	Cooldown time.Duration
	// MaxMissedTicks is the number of consecutive unclassified ticks tolerated
	// inside a streak. Zero resets the streak on the first miss.
	MaxMissedTicks int
}

var (
	// errNegativeThreshold is returned for a negative bad threshold.
	errNegativeThreshold = errors.New("bad threshold must not be negative")
	// errNegativeCooldown is returned for a negative cooldown.
	errNegativeCooldown = errors.New("cooldown must not be negative")
	// errNegativeMissed is returned for a negative miss tolerance.
	errNegativeMissed = errors.New("max missed ticks must not be negative")
)

// DefaultConfig returns the production timing parameters.
func DefaultConfig() Config {
	return Config{
		BadThreshold:   DefaultBadThreshold,
		Cooldown:       DefaultCooldown,
		MaxMissedTicks: DefaultMaxMissedTicks,
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	switch {
	case c.BadThreshold < 0:
		return errNegativeThreshold
	case c.Cooldown < 0:
		return errNegativeCooldown
	case c.MaxMissedTicks < 0:
		return errNegativeMissed
	default:
		return nil
	}
}
