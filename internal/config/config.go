package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // Asia/Tokyo must resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"

	"github.com/dbehnke/jjyd/internal/logging"
)

// Config represents the jjyd configuration
type Config struct {
	filename string
	location *time.Location

	Station  StationConfig  `yaml:"station"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

// StationConfig describes the transmitting station
type StationConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"` // IANA zone the time code is sent in
}

// GPIOConfig selects the output pin keying the carrier
type GPIOConfig struct {
	Pin       int  `yaml:"pin"`        // BCM pin number
	ActiveLow bool `yaml:"active_low"` // Invert the pin level
	DryRun    bool `yaml:"dry_run"`    // Do not touch hardware
}

// DatabaseConfig controls the transmission history
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"` // 0 keeps everything
	Debug         bool   `yaml:"debug"`
}

// LogConfig controls console and file logging
type LogConfig struct {
	Level      string `yaml:"level"` // trace, debug, info, warn, error
	File       string `yaml:"file"`  // Optional rotated log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

// MQTTConfig controls frame publishing
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g. tcp://localhost:1883
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         byte   `yaml:"qos"`
}

// NewConfig creates a new configuration instance
func NewConfig(filename string) *Config {
	return &Config{
		filename: filename,
		// Set reasonable defaults
		Station: StationConfig{
			Name:     "jjyd",
			Timezone: "Asia/Tokyo",
		},
		GPIO: GPIOConfig{
			Pin: 4,
		},
		Database: DatabaseConfig{
			Enabled:       false,
			Path:          "data/jjyd.db",
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Bind: "127.0.0.1:9110",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "jjyd",
		},
	}
}

// Load loads configuration from the specified file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filename)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", c.filename, err)
	}

	return c.parse(data)
}

// LoadFromString loads configuration from a string (useful for testing)
func (c *Config) LoadFromString(data string) error {
	return c.parse([]byte(data))
}

func (c *Config) parse(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return c.Validate()
}

// Validate checks the loaded values and resolves the station timezone
func (c *Config) Validate() error {
	if c.Station.Timezone == "" {
		return fmt.Errorf("station.timezone is required")
	}
	loc, err := time.LoadLocation(c.Station.Timezone)
	if err != nil {
		return fmt.Errorf("invalid station.timezone %q: %w", c.Station.Timezone, err)
	}
	c.location = loc

	if c.GPIO.Pin < 0 {
		return fmt.Errorf("invalid gpio.pin %d", c.GPIO.Pin)
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database.path is required when the database is enabled")
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("invalid database.retention_days %d", c.Database.RetentionDays)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt.qos %d", c.MQTT.QoS)
	}

	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}

	return nil
}

// Station getters
func (c *Config) GetStationName() string { return c.Station.Name }
func (c *Config) GetTimezone() string    { return c.Station.Timezone }

// GetLocation returns the resolved station timezone, loading it on first use
// when the configuration was built without Load.
func (c *Config) GetLocation() *time.Location {
	if c.location == nil {
		loc, err := time.LoadLocation(c.Station.Timezone)
		if err != nil {
			return time.UTC
		}
		c.location = loc
	}
	return c.location
}

// GPIO getters
func (c *Config) GetGPIOPin() int        { return c.GPIO.Pin }
func (c *Config) GetGPIOActiveLow() bool { return c.GPIO.ActiveLow }
func (c *Config) GetDryRun() bool        { return c.GPIO.DryRun }

// Database getters
func (c *Config) GetDatabaseEnabled() bool { return c.Database.Enabled }
func (c *Config) GetDatabasePath() string  { return c.Database.Path }
func (c *Config) GetDatabaseDebug() bool   { return c.Database.Debug }

// GetRetention returns how long history rows are kept, 0 meaning forever
func (c *Config) GetRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

// Log getters
func (c *Config) GetLogLevel() string   { return c.Log.Level }
func (c *Config) GetLogFile() string    { return c.Log.File }
func (c *Config) GetLogMaxSizeMB() int  { return c.Log.MaxSizeMB }
func (c *Config) GetLogMaxBackups() int { return c.Log.MaxBackups }

// Metrics getters
func (c *Config) GetMetricsEnabled() bool { return c.Metrics.Enabled }
func (c *Config) GetMetricsBind() string  { return c.Metrics.Bind }

// MQTT getters
func (c *Config) GetMQTTEnabled() bool       { return c.MQTT.Enabled }
func (c *Config) GetMQTTBroker() string      { return c.MQTT.Broker }
func (c *Config) GetMQTTTopicPrefix() string { return c.MQTT.TopicPrefix }
func (c *Config) GetMQTTUsername() string    { return c.MQTT.Username }
func (c *Config) GetMQTTPassword() string    { return c.MQTT.Password }
func (c *Config) GetMQTTQoS() byte           { return c.MQTT.QoS }
