package config

import (
	"errors"
	"fmt"
	"net"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/posture-alarm/internal/classifier"
	"github.com/oshokin/posture-alarm/internal/debounce"
)

// Config holds the settings shared by the posture binaries.
type Config struct {
	// LogLevel is the minimum level of emitted log messages.
	LogLevel string `yaml:"log_level"`
	// LogEncoding is either console or json.
	LogEncoding string `yaml:"log_encoding"`
	// ListenAddress is where the monitor serves its gRPC API. Empty disables it.
	ListenAddress string `yaml:"listen_addr"`
	// Timeout bounds network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// Detection configures classification and debouncing.
	Detection Detection `yaml:"detection"`
	// Source configures where frames come from.
	Source Source `yaml:"source"`
	// Notifier configures the desktop notification sink.
	Notifier Notifier `yaml:"notifier"`
	// Journal configures the alert history sink.
	Journal Journal `yaml:"journal"`
	// MQTT configures the MQTT alert publisher.
	MQTT MQTT `yaml:"mqtt"`
	// Redis configures the Redis stream alert publisher.
	Redis Redis `yaml:"redis"`
	// Webhook configures the HTTP alert publisher.
	Webhook Webhook `yaml:"webhook"`
}

// Detection holds the posture decision parameters.
type Detection struct {
	// Strategy is the classifier name.
	Strategy string `yaml:"strategy"`
	// Side is the body side read by single-sided strategies.
	Side string `yaml:"side"`
	// TickInterval is the sampling period.
	TickInterval time.Duration `yaml:"tick_interval"`
	// BadThresholdMs is how long bad posture must last before an alert.
	// Nil selects the default; zero alerts on the first bad tick.
	BadThresholdMs *int64 `yaml:"bad_threshold_ms"`
	// CooldownMs is the minimum delay between two alerts. Nil selects the
	// default; zero disables rate limiting.
	CooldownMs *int64 `yaml:"cooldown_ms"`
	// MaxMissedTicks is how many ticks without a pose a streak survives.
	MaxMissedTicks *int `yaml:"max_missed_ticks"`
}

// Source selects the landmark source.
type Source struct {
	// Recording is the path to a YAML landmark recording.
	Recording string `yaml:"recording"`
	// Loop restarts the recording when it ends.
	Loop bool `yaml:"loop"`
}

// Notifier configures the OS notification command.
type Notifier struct {
	// Enabled turns the notifier on.
	Enabled bool `yaml:"enabled"`
	// Command overrides the OS default; arguments may use {title} and {message}.
	Command []string `yaml:"command"`
	// Title of the notification.
	Title string `yaml:"title"`
	// Message body of the notification.
	Message string `yaml:"message"`
}

// Journal configures the alert history.
type Journal struct {
	// Backend is none, file or sqlite.
	Backend string `yaml:"backend"`
	// Path is the journal file or SQLite database path.
	Path string `yaml:"path"`
}

// MQTT configures the MQTT publisher. An empty broker disables it.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// Redis configures the Redis stream publisher. An empty address disables it.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// Webhook configures the HTTP publisher. An empty URL disables it.
type Webhook struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// Journal backends.
const (
	JournalNone   = "none"
	JournalFile   = "file"
	JournalSQLite = "sqlite"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "posture-alarm-settings.yaml"

	// DefaultListenAddress is the default gRPC listen address.
	DefaultListenAddress = "127.0.0.1:50061"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultTickInterval samples at roughly ten frames per second.
	DefaultTickInterval = 100 * time.Millisecond

	// DefaultJournalFilename is the default alert journal path.
	DefaultJournalFilename = "posture-alarm-journal.jsonl"

	// DefaultMQTTTopic is the default MQTT alert topic.
	DefaultMQTTTopic = "posture/alerts"

	// DefaultRedisStream is the default Redis stream key.
	DefaultRedisStream = "posture:alerts"

	// DefaultNotificationTitle is the default notification title.
	DefaultNotificationTitle = "Posture check"

	// DefaultNotificationMessage is the default notification body.
	DefaultNotificationMessage = "You have been slouching for a while. Sit up straight!"

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeDuration is returned for negative millisecond settings.
	errNegativeDuration = errors.New("thresholds must not be negative")
	// errDurationOverflow is returned for millisecond settings beyond time.Duration.
	errDurationOverflow = errors.New("thresholds are too large")
	// errUnknownJournal is returned for an unsupported journal backend.
	errUnknownJournal = errors.New("unknown journal backend")
	// errInvalidQoS is returned for MQTT QoS outside 0..2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings.
//
//nolint:cyclop // A flat list of checks reads better than helpers.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	applyDefaults(settings)

	if settings.ListenAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
			return fmt.Errorf("invalid listen address: %w", err)
		}
	}

	if _, err := classifier.New(settings.Detection.Strategy, classifier.Side(settings.Detection.Side)); err != nil {
		return fmt.Errorf("invalid detection strategy: %w", err)
	}

	for _, ms := range []*int64{settings.Detection.BadThresholdMs, settings.Detection.CooldownMs} {
		switch {
		case ms == nil:
		case *ms < 0:
			return errNegativeDuration
		case *ms > maxDurationMs:
			return errDurationOverflow
		}
	}

	if err := settings.DebounceConfig().Validate(); err != nil {
		return fmt.Errorf("invalid detection settings: %w", err)
	}

	switch settings.Journal.Backend {
	case JournalNone, JournalFile, JournalSQLite:
	default:
		return fmt.Errorf("%w: %q", errUnknownJournal, settings.Journal.Backend)
	}

	if settings.MQTT.QoS > 2 { //nolint:mnd // MQTT defines three QoS levels.
		return errInvalidQoS
	}

	if settings.Webhook.URL != "" {
		if _, err := url.ParseRequestURI(settings.Webhook.URL); err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
	}

	return nil
}

// maxDurationMs is the largest millisecond count a time.Duration can hold.
const maxDurationMs = math.MaxInt64 / int64(time.Millisecond)

// Millis returns d in milliseconds, ready for the *Ms settings.
func Millis(d time.Duration) *int64 {
	ms := d.Milliseconds()

	return &ms
}

// DebounceConfig converts the detection settings to machine parameters.
func (c *Config) DebounceConfig() debounce.Config {
	cfg := debounce.Config{
		BadThreshold:   debounce.DefaultBadThreshold,
		Cooldown:       debounce.DefaultCooldown,
		MaxMissedTicks: debounce.DefaultMaxMissedTicks,
	}

	if c.Detection.BadThresholdMs != nil {
		cfg.BadThreshold = time.Duration(*c.Detection.BadThresholdMs) * time.Millisecond
	}

	if c.Detection.CooldownMs != nil {
		cfg.Cooldown = time.Duration(*c.Detection.CooldownMs) * time.Millisecond
	}

	if c.Detection.MaxMissedTicks != nil {
		cfg.MaxMissedTicks = *c.Detection.MaxMissedTicks
	}

	return cfg
}

func applyDefaults(settings *Config) {
	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	d := &settings.Detection
	if d.Strategy == "" {
		d.Strategy = classifier.NameEarShoulder
	}

	if d.TickInterval <= 0 {
		d.TickInterval = DefaultTickInterval
	}

	if d.BadThresholdMs == nil {
		d.BadThresholdMs = Millis(debounce.DefaultBadThreshold)
	}

	if d.CooldownMs == nil {
		d.CooldownMs = Millis(debounce.DefaultCooldown)
	}

	settings.Journal.Backend = strings.ToLower(strings.TrimSpace(settings.Journal.Backend))
	if settings.Journal.Backend == "" {
		settings.Journal.Backend = JournalNone
	}

	if settings.Journal.Backend != JournalNone && settings.Journal.Path == "" {
		settings.Journal.Path = DefaultJournalFilename
	}

	if settings.Notifier.Title == "" {
		settings.Notifier.Title = DefaultNotificationTitle
	}

	if settings.Notifier.Message == "" {
		settings.Notifier.Message = DefaultNotificationMessage
	}

	if settings.MQTT.Topic == "" {
		settings.MQTT.Topic = DefaultMQTTTopic
	}

	if settings.Redis.Stream == "" {
		settings.Redis.Stream = DefaultRedisStream
	}
}
