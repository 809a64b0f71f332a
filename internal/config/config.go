package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of a single wellness node.
type Config struct {
	// NodeID is the numeric node identifier reported in every status message.
	NodeID int `yaml:"node_id"`
	// ClientID is the MQTT client identifier.
	ClientID string `yaml:"client_id"`
	// BrokerHost is the MQTT broker address (IPv4, IPv6 or hostname).
	BrokerHost string `yaml:"broker_host"`
	// BrokerPort is the MQTT broker TCP port.
	BrokerPort int `yaml:"broker_port"`
	// PublishTopic receives the periodic status messages.
	PublishTopic string `yaml:"publish_topic"`
	// ControlTopic is subscribed to for ON/OFF commands.
	ControlTopic string `yaml:"control_topic"`
	// SensorType is copied into the sensorType field of status messages.
	SensorType string `yaml:"sensor_type"`
	// PublishInterval is the control loop tick period.
	PublishInterval time.Duration `yaml:"publish_interval"`
	// ListenAddress is where the gRPC actuator endpoint listens.
	ListenAddress string `yaml:"listen_addr"`
	// AssumeConnectivity skips route/address probing, for development hosts.
	AssumeConnectivity bool `yaml:"assume_connectivity"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Button configures the physical manual-override button.
	Button Button `yaml:"button"`
	// UpdateFolder is the URL where firmware releases are hosted.
	UpdateFolder string `yaml:"update_folder"`
	// Timeout bounds network calls made by the CLI tools and the updater.
	Timeout time.Duration `yaml:"timeout"`
}

// Button describes a GPIO input line wired to the override button.
type Button struct {
	// Enabled turns the GPIO watcher on.
	Enabled bool `yaml:"enabled"`
	// Chip is the GPIO character device name, e.g. gpiochip0.
	Chip string `yaml:"chip"`
	// Line is the line offset on the chip.
	Line int `yaml:"line"`
	// Debounce filters contact bounce on the line.
	Debounce time.Duration `yaml:"debounce"`
}

const (
	// DefaultConfigFilename is the default filename for node settings.
	DefaultConfigFilename = "wellness-node.yaml"

	// DefaultNodeID is used when node_id is not set.
	DefaultNodeID = 1

	// DefaultClientID is the client identifier the collector expects.
	DefaultClientID = "SmartWellnessCollector"

	// DefaultBrokerHost is the border router address of the reference deployment.
	DefaultBrokerHost = "fd00::1"

	// DefaultBrokerPort is the plain MQTT port.
	DefaultBrokerPort = 1883

	// DefaultPublishTopic carries status messages.
	DefaultPublishTopic = "humidity"

	// DefaultControlTopic carries ON/OFF commands.
	DefaultControlTopic = "humidity_control"

	// DefaultSensorType identifies the simulated sensor.
	DefaultSensorType = "humiditySensor"

	// DefaultPublishInterval is the tick period.
	DefaultPublishInterval = 5 * time.Second

	// DefaultListenAddress is where the actuator endpoint listens.
	DefaultListenAddress = ":5683"

	// DefaultChip is the GPIO chip used when the button is enabled without one.
	DefaultChip = "gpiochip0"

	// DefaultDebounce is the button debounce period.
	DefaultDebounce = 50 * time.Millisecond

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// MaxSensorTypeLength keeps status messages inside their buffer.
	MaxSensorTypeLength = 19

	// MaxTopicLength matches the topic buffers of the firmware.
	MaxTopicLength = 63
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidBrokerPort is returned for ports outside 1..65535.
	errInvalidBrokerPort = errors.New("broker port must be between 1 and 65535")
	// errInvalidTopic is returned for empty, wildcard or oversized topics.
	errInvalidTopic = errors.New("invalid topic")
	// errSensorTypeTooLong is returned when sensor_type does not fit a status message.
	errSensorTypeTooLong = errors.New("sensor type is too long")
	// errInvalidInterval is returned for negative intervals.
	errInvalidInterval = errors.New("publish interval must not be negative")
	// errInvalidButtonLine is returned for negative GPIO offsets.
	errInvalidButtonLine = errors.New("button line must not be negative")
	// errInvalidNodeID is returned for negative node identifiers.
	errInvalidNodeID = errors.New("node id must not be negative")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Validate only fills defaults on an empty config.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
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

// Save writes the configuration to the provided path.
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

// Validate fills defaults and checks the settings.
//
//nolint:cyclop,funlen // Flat list of independent field checks.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.NodeID < 0 {
		return errInvalidNodeID
	}

	if cfg.NodeID == 0 {
		cfg.NodeID = DefaultNodeID
	}

	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}

	if cfg.BrokerHost == "" {
		cfg.BrokerHost = DefaultBrokerHost
	}

	if cfg.BrokerPort == 0 {
		cfg.BrokerPort = DefaultBrokerPort
	}

	if cfg.BrokerPort < 0 || cfg.BrokerPort > 65535 {
		return errInvalidBrokerPort
	}

	if cfg.PublishTopic == "" {
		cfg.PublishTopic = DefaultPublishTopic
	}

	if cfg.ControlTopic == "" {
		cfg.ControlTopic = DefaultControlTopic
	}

	for _, topic := range []string{cfg.PublishTopic, cfg.ControlTopic} {
		if err := validateTopic(topic); err != nil {
			return err
		}
	}

	if cfg.SensorType == "" {
		cfg.SensorType = DefaultSensorType
	}

	if len(cfg.SensorType) > MaxSensorTypeLength {
		return fmt.Errorf("%q: %w", cfg.SensorType, errSensorTypeTooLong)
	}

	if cfg.PublishInterval < 0 {
		return errInvalidInterval
	}

	if cfg.PublishInterval == 0 {
		cfg.PublishInterval = DefaultPublishInterval
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.Button.Line < 0 {
		return errInvalidButtonLine
	}

	if cfg.Button.Chip == "" {
		cfg.Button.Chip = DefaultChip
	}

	if cfg.Button.Debounce <= 0 {
		cfg.Button.Debounce = DefaultDebounce
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.UpdateFolder == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.UpdateFolder); err != nil {
		return fmt.Errorf("invalid update folder URI: %w", err)
	}

	return nil
}

// BrokerAddress returns host:port of the broker, bracketing IPv6 literals.
func (c *Config) BrokerAddress() string {
	return net.JoinHostPort(c.BrokerHost, fmt.Sprint(c.BrokerPort))
}

func validateTopic(topic string) error {
	switch {
	case len(topic) > MaxTopicLength:
		return fmt.Errorf("%q is longer than %d bytes: %w", topic, MaxTopicLength, errInvalidTopic)
	case strings.ContainsAny(topic, "#+"):
		return fmt.Errorf("%q contains wildcards: %w", topic, errInvalidTopic)
	default:
		return nil
	}
}
