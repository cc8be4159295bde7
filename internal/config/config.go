package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/tuyactl/internal/devices"
)

// Config represents the application configuration
type Config struct {
	Log       LogConfig                       `yaml:"log"`
	Database  DatabaseConfig                  `yaml:"database"`
	MQTT      MQTTConfig                      `yaml:"mqtt"`
	Presets   PresetsConfig                   `yaml:"presets"`
	Broadcast BroadcastConfig                 `yaml:"broadcast"`
	History   HistoryConfig                   `yaml:"history"`
	Devices   map[string]devices.DeviceConfig `yaml:"devices"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig contains the tuya-mqtt bridge connection settings
type MQTTConfig struct {
	Broker      string   `yaml:"broker"`
	ClientID    string   `yaml:"client_id"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	TopicPrefix string   `yaml:"topic_prefix"`
	QoS         int      `yaml:"qos"`
	Timeout     Duration `yaml:"timeout"` // per command and per status read
}

// PresetsConfig contains preset file settings
type PresetsConfig struct {
	Dir        string `yaml:"dir"`
	ApplyPlugs *bool  `yaml:"apply_plugs"` // default: true
}

// ApplyPlugsEnabled reports whether presets are applied to plugs.
func (c PresetsConfig) ApplyPlugsEnabled() bool {
	return c.ApplyPlugs == nil || *c.ApplyPlugs
}

// BroadcastConfig contains settings for multi-device actions
type BroadcastConfig struct {
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // 0 = unlimited
}

// HistoryConfig contains command history settings
type HistoryConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Retention returns the history retention as a duration.
func (c HistoryConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./tuyactl.sqlite"
	}

	// MQTT defaults
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = fmt.Sprintf("tuyactl-%d", os.Getpid())
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "tuya"
	}
	if cfg.MQTT.Timeout == 0 {
		cfg.MQTT.Timeout = Duration(5 * time.Second)
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return nil, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}

	// History defaults
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = 30
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
