package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort      = 8080
	DefaultTickInterval  = 5 * time.Second
	DefaultSeedPoints    = 21
	DefaultSeedSpacing   = 5 * time.Minute
	DefaultAlertCooldown = time.Minute
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"

	// staleFactor scales the tick interval into the default staleness window.
	staleFactor = 3
)

// Notification selection modes.
const (
	// ModeFirst keeps only the highest-precedence notification per reading.
	ModeFirst = "first"
	// ModeAll keeps every matched notification, in precedence order.
	ModeAll = "all"
)

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Log           LogConfig          `yaml:"log"`
	Simulation    SimulationConfig   `yaml:"simulation"`
	Notifications NotificationConfig `yaml:"notifications"`
	Lines         []LineSpec         `yaml:"lines"`
	Alerts        AlertsConfig       `yaml:"alerts"`
	Sinks         SinksConfig        `yaml:"sinks"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, /metrics and the WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is json (production) or text (colored console output).
	Format string `yaml:"format"`
}

// SlogLevel returns the configured level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// SimulationConfig controls the refresh loop and the synthetic history
// generated at start.
type SimulationConfig struct {
	// TickInterval is the time between refresh ticks.
	TickInterval time.Duration `yaml:"tick_interval"`

	// SeedPoints is how many historical metrics are generated per line at start.
	SeedPoints int `yaml:"seed_points"`

	// SeedSpacing is the gap between consecutive seeded metrics.
	SeedSpacing time.Duration `yaml:"seed_spacing"`

	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`

	// StaleAfter marks a line offline when it has not been refreshed for
	// this long. Zero means three tick intervals.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// NotificationConfig controls how matched threshold rules become notifications.
type NotificationConfig struct {
	// Mode is first (only the highest-precedence match per reading) or all.
	Mode string `yaml:"mode"`
}

// AlertsConfig holds webhook delivery targets for emitted notifications.
type AlertsConfig struct {
	// Cooldown suppresses re-delivery of the same rule for the same line.
	Cooldown time.Duration `yaml:"cooldown"`

	// MinSeverity drops notifications below this severity: info | warning | error.
	MinSeverity string `yaml:"min_severity"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// SinksConfig configures optional publishers for tick output.
type SinksConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`

	// MetricsTopic receives one message per line per tick, keyed by line id.
	MetricsTopic string `yaml:"metrics_topic"`

	// NotificationsTopic receives emitted notifications. Empty disables them.
	NotificationsTopic string `yaml:"notifications_topic"`
}

// Enabled reports whether the Kafka sink should be started.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// MQTTConfig enables the MQTT sink when Broker is set.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`

	// TopicPrefix is prepended to per-line topics: <prefix>/lines/<id>/metrics.
	TopicPrefix string `yaml:"topic_prefix"`

	// QoS is the MQTT quality-of-service level (0, 1 or 2).
	QoS byte `yaml:"qos"`
}

// Enabled reports whether the MQTT sink should be started.
func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if len(cfg.Lines) == 0 {
		cfg.Lines = DefaultLines()
	}
	fillLineNames(cfg.Lines)
	if cfg.Simulation.StaleAfter == 0 {
		cfg.Simulation.StaleAfter = staleFactor * cfg.Simulation.TickInterval
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := defaults()
	cfg.Lines = DefaultLines()
	fillLineNames(cfg.Lines)
	cfg.Simulation.StaleAfter = staleFactor * cfg.Simulation.TickInterval
	return cfg
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{HTTPPort: DefaultHTTPPort},
		Log:    LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Simulation: SimulationConfig{
			TickInterval: DefaultTickInterval,
			SeedPoints:   DefaultSeedPoints,
			SeedSpacing:  DefaultSeedSpacing,
		},
		Notifications: NotificationConfig{Mode: ModeFirst},
		Alerts:        AlertsConfig{Cooldown: DefaultAlertCooldown},
		Sinks: SinksConfig{
			Kafka: KafkaConfig{MetricsTopic: "linewatch.metrics"},
			MQTT:  MQTTConfig{ClientID: "linewatch", TopicPrefix: "linewatch"},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	if cfg.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if cfg.Simulation.StaleAfter <= cfg.Simulation.TickInterval {
		return fmt.Errorf("simulation.stale_after (%s) must be longer than tick_interval (%s)",
			cfg.Simulation.StaleAfter, cfg.Simulation.TickInterval)
	}
	if cfg.Simulation.SeedPoints < 0 {
		return fmt.Errorf("simulation.seed_points must not be negative")
	}
	if cfg.Simulation.SeedPoints > 0 && cfg.Simulation.SeedSpacing <= 0 {
		return fmt.Errorf("simulation.seed_spacing must be positive when seed_points > 0")
	}
	switch cfg.Notifications.Mode {
	case ModeFirst, ModeAll:
	default:
		return fmt.Errorf("notifications.mode %q unknown: want first|all", cfg.Notifications.Mode)
	}
	if err := validateLines(cfg.Lines); err != nil {
		return err
	}
	if cfg.Alerts.Cooldown < 0 {
		return fmt.Errorf("alerts.cooldown must not be negative")
	}
	switch cfg.Alerts.MinSeverity {
	case "", "info", "warning", "error":
	default:
		return fmt.Errorf("alerts.min_severity %q unknown: want info|warning|error", cfg.Alerts.MinSeverity)
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "teams", "slack", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}
	if cfg.Sinks.Kafka.Enabled() && cfg.Sinks.Kafka.MetricsTopic == "" {
		return fmt.Errorf("sinks.kafka.metrics_topic is required when brokers are set")
	}
	if cfg.Sinks.MQTT.QoS > 2 {
		return fmt.Errorf("sinks.mqtt.qos %d out of range [0, 2]", cfg.Sinks.MQTT.QoS)
	}
	return nil
}
