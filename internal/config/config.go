package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Activity ActivityConfig `yaml:"activity"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig contains the SQLite entity store settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RealtimeConfig contains websocket gateway settings
type RealtimeConfig struct {
	Path string `yaml:"path"` // mount point, default /realtime
}

// ActivityConfig contains the bbolt activity journal settings
type ActivityConfig struct {
	Path  string `yaml:"path"`
	Depth int    `yaml:"depth"` // retained entries per organization
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ListenAddr    string        `yaml:"listen_addr"`    // Default: :9090
	Path          string        `yaml:"path"`           // Default: /metrics
	FlushInterval time.Duration `yaml:"flush_interval"` // Default: 10s
	AllowedIPs    []string      `yaml:"allowed_ips"`    // IP addresses/CIDRs allowed to access metrics
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with default values
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Database.Path == "" {
		c.Database.Path = "/var/lib/leadwire/leadwire.db"
	}

	if c.Realtime.Path == "" {
		c.Realtime.Path = "/realtime"
	}

	if c.Activity.Path == "" {
		c.Activity.Path = "/var/lib/leadwire/activity.db"
	}
	if c.Activity.Depth == 0 {
		c.Activity.Depth = 200
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.FlushInterval == 0 {
		c.Metrics.FlushInterval = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Path == c.Activity.Path {
		return fmt.Errorf("database.path and activity.path must differ")
	}
	if c.Activity.Depth < 0 {
		return fmt.Errorf("activity.depth must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == c.Server.ListenAddr {
		return fmt.Errorf("metrics.listen_addr must differ from server.listen_addr")
	}

	return nil
}
