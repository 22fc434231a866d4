// ABOUTME: Configuration loading and parsing for coven-link
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete coven-link configuration.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Client   ClientConfig   `yaml:"client"`
	Identity IdentityConfig `yaml:"identity"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GatewayConfig locates and authenticates against the gateway.
type GatewayConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// ClientConfig describes this client in the connect handshake.
type ClientConfig struct {
	ID       string   `yaml:"id"`
	Mode     string   `yaml:"mode"`
	Version  string   `yaml:"version"`
	Platform string   `yaml:"platform"`
	Scopes   []string `yaml:"scopes"`
}

// IdentityConfig holds the device keypair location.
type IdentityConfig struct {
	KeyPath string `yaml:"key_path"`
}

// SessionConfig holds session timing configuration.
type SessionConfig struct {
	HandshakeTimeout  time.Duration `yaml:"-"`
	CommandTimeout    time.Duration `yaml:"-"`
	HeartbeatInterval time.Duration `yaml:"-"`
	HeartbeatTimeout  time.Duration `yaml:"-"`
	ReconnectBase     time.Duration `yaml:"-"`
	ReconnectCap      time.Duration `yaml:"-"`

	MaxReconnects int `yaml:"max_reconnects"`

	// Raw string values for YAML unmarshaling
	HandshakeTimeoutRaw  string `yaml:"handshake_timeout"`
	CommandTimeoutRaw    string `yaml:"command_timeout"`
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval"`
	HeartbeatTimeoutRaw  string `yaml:"heartbeat_timeout"`
	ReconnectBaseRaw     string `yaml:"reconnect_base"`
	ReconnectCapRaw      string `yaml:"reconnect_cap"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment
// variable values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required")
	}
	if c.Gateway.Token == "" && c.Identity.KeyPath == "" {
		return fmt.Errorf("gateway.token or identity.key_path is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"handshake_timeout", cfg.Session.HandshakeTimeoutRaw, &cfg.Session.HandshakeTimeout},
		{"command_timeout", cfg.Session.CommandTimeoutRaw, &cfg.Session.CommandTimeout},
		{"heartbeat_interval", cfg.Session.HeartbeatIntervalRaw, &cfg.Session.HeartbeatInterval},
		{"heartbeat_timeout", cfg.Session.HeartbeatTimeoutRaw, &cfg.Session.HeartbeatTimeout},
		{"reconnect_base", cfg.Session.ReconnectBaseRaw, &cfg.Session.ReconnectBase},
		{"reconnect_cap", cfg.Session.ReconnectCapRaw, &cfg.Session.ReconnectCap},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
