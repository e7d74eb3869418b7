package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_LoadFromFile(t *testing.T) {
	testConfig := `station:
  name: Test Station
  timezone: Asia/Tokyo

gpio:
  pin: 17
  active_low: true
  dry_run: false

database:
  enabled: true
  path: /var/lib/jjyd/history.db
  retention_days: 7

log:
  level: debug
  file: /var/log/jjyd.log
  max_size_mb: 5
  max_backups: 2

metrics:
  enabled: true
  bind: 0.0.0.0:9110

mqtt:
  enabled: true
  broker: tcp://broker.example.com:1883
  topic_prefix: station/jjy
  username: jjy
  password: secret
  qos: 1
`

	path := filepath.Join(t.TempDir(), "jjyd.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	config := NewConfig(path)
	if err := config.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.GetStationName() != "Test Station" {
		t.Errorf("GetStationName() = %q, want %q", config.GetStationName(), "Test Station")
	}
	if config.GetLocation().String() != "Asia/Tokyo" {
		t.Errorf("GetLocation() = %v, want Asia/Tokyo", config.GetLocation())
	}

	if config.GetGPIOPin() != 17 {
		t.Errorf("GetGPIOPin() = %d, want 17", config.GetGPIOPin())
	}
	if !config.GetGPIOActiveLow() {
		t.Error("GetGPIOActiveLow() = false, want true")
	}

	if !config.GetDatabaseEnabled() {
		t.Error("GetDatabaseEnabled() = false, want true")
	}
	if config.GetDatabasePath() != "/var/lib/jjyd/history.db" {
		t.Errorf("GetDatabasePath() = %q", config.GetDatabasePath())
	}
	if config.GetRetention() != 7*24*time.Hour {
		t.Errorf("GetRetention() = %v, want 168h", config.GetRetention())
	}

	if config.GetLogLevel() != "debug" {
		t.Errorf("GetLogLevel() = %q, want debug", config.GetLogLevel())
	}
	if config.GetLogMaxSizeMB() != 5 || config.GetLogMaxBackups() != 2 {
		t.Errorf("log rotation = %d MB x %d, want 5 MB x 2", config.GetLogMaxSizeMB(), config.GetLogMaxBackups())
	}

	if !config.GetMetricsEnabled() || config.GetMetricsBind() != "0.0.0.0:9110" {
		t.Errorf("metrics = %v %q", config.GetMetricsEnabled(), config.GetMetricsBind())
	}

	if config.GetMQTTBroker() != "tcp://broker.example.com:1883" {
		t.Errorf("GetMQTTBroker() = %q", config.GetMQTTBroker())
	}
	if config.GetMQTTTopicPrefix() != "station/jjy" {
		t.Errorf("GetMQTTTopicPrefix() = %q", config.GetMQTTTopicPrefix())
	}
	if config.GetMQTTQoS() != 1 {
		t.Errorf("GetMQTTQoS() = %d, want 1", config.GetMQTTQoS())
	}
}

func TestConfig_LoadFromString(t *testing.T) {
	testConfig := `gpio:
  pin: 18
  dry_run: true
`

	config := NewConfig("")
	if err := config.LoadFromString(testConfig); err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if config.GetGPIOPin() != 18 {
		t.Errorf("GetGPIOPin() = %d, want 18", config.GetGPIOPin())
	}
	if !config.GetDryRun() {
		t.Error("GetDryRun() = false, want true")
	}
	// Sections not mentioned keep their defaults
	if config.GetTimezone() != "Asia/Tokyo" {
		t.Errorf("GetTimezone() = %q, want Asia/Tokyo", config.GetTimezone())
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	config := NewConfig("")

	if config.GetGPIOPin() != 4 {
		t.Errorf("GetGPIOPin() default = %d, want 4", config.GetGPIOPin())
	}
	if config.GetDatabaseEnabled() {
		t.Error("GetDatabaseEnabled() default = true, want false")
	}
	if config.GetMQTTEnabled() {
		t.Error("GetMQTTEnabled() default = true, want false")
	}
	if config.GetLocation().String() != "Asia/Tokyo" {
		t.Errorf("GetLocation() default = %v, want Asia/Tokyo", config.GetLocation())
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestConfig_LogLevels(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "warning", "error"} {
		config := NewConfig("")
		if err := config.LoadFromString("log:\n  level: " + level + "\n"); err != nil {
			t.Errorf("log.level %q rejected: %v", level, err)
		}
	}
}

func TestConfig_InvalidFile(t *testing.T) {
	config := NewConfig("/nonexistent/jjyd.yaml")
	if err := config.Load(); err == nil {
		t.Error("Load() with nonexistent file should return error")
	}
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"unknown timezone", "station:\n  timezone: Mars/Olympus_Mons\n"},
		{"empty timezone", "station:\n  timezone: \"\"\n"},
		{"negative pin", "gpio:\n  pin: -1\n"},
		{"database without path", "database:\n  enabled: true\n  path: \"\"\n"},
		{"negative retention", "database:\n  retention_days: -3\n"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n  broker: \"\"\n"},
		{"bad qos", "mqtt:\n  qos: 3\n"},
		{"bad log level", "log:\n  level: chatty\n"},
		{"malformed yaml", "gpio: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewConfig("")
			if err := config.LoadFromString(tt.config); err == nil {
				t.Errorf("LoadFromString(%q) expected error but got none", tt.config)
			}
		})
	}
}
