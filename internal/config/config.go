package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Messaging MessagingConfig `yaml:"messaging"`
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Host      HostConfig      `yaml:"host"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MessagingConfig contains the UDP messaging session configuration.
type MessagingConfig struct {
	BindAddress string `yaml:"bind_address"`
	// Port overrides the pid-derived messaging port. 0 keeps the
	// deterministic derivation (56000 + pid mod 1000, offset +2).
	Port           int `yaml:"port"`
	BufferSize     int `yaml:"buffer_size"`
	ClientTimeout  int `yaml:"client_timeout"`   // seconds of silence before eviction
	TickIntervalMS int `yaml:"tick_interval_ms"` // milliseconds between processing ticks
	QueueCapacity  int `yaml:"queue_capacity"`
}

// HTTPConfig contains the monitoring API server configuration.
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// StorageConfig contains durable settings storage configuration.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// HostConfig configures the built-in local host implementation.
type HostConfig struct {
	ProjectRoot string `yaml:"project_root"`
	AutoRefresh string `yaml:"auto_refresh"` // disabled, always, outside_play
	SafeMode    bool   `yaml:"safe_mode"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file. An empty path yields the
// built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills in zero-valued fields.
func (c *Config) applyDefaults() {
	if c.Messaging.BindAddress == "" {
		c.Messaging.BindAddress = "127.0.0.1"
	}
	if c.Messaging.BufferSize == 0 {
		c.Messaging.BufferSize = 8192
	}
	if c.Messaging.ClientTimeout == 0 {
		c.Messaging.ClientTimeout = 4
	}
	if c.Messaging.TickIntervalMS == 0 {
		c.Messaging.TickIntervalMS = 100
	}
	if c.Messaging.QueueCapacity == 0 {
		c.Messaging.QueueCapacity = 1024
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/messenger.db"
	}
	if c.Host.ProjectRoot == "" {
		c.Host.ProjectRoot = "."
	}
	if c.Host.AutoRefresh == "" {
		c.Host.AutoRefresh = "always"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate performs validation of the full configuration.
func (c *Config) Validate() error {
	if err := c.Messaging.Validate(); err != nil {
		return fmt.Errorf("messaging config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Host.Validate(); err != nil {
		return fmt.Errorf("host config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates messaging configuration.
func (m *MessagingConfig) Validate() error {
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", m.Port)
	}

	if m.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if m.BufferSize < 1024 {
		return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", m.BufferSize)
	}

	if m.ClientTimeout < 1 {
		return fmt.Errorf("client_timeout must be at least 1 second, got %d", m.ClientTimeout)
	}

	if m.TickIntervalMS < 10 {
		return fmt.Errorf("tick_interval_ms must be at least 10, got %d", m.TickIntervalMS)
	}

	if m.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", m.QueueCapacity)
	}

	return nil
}

// Validate validates HTTP configuration.
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates host configuration.
func (h *HostConfig) Validate() error {
	validPolicies := map[string]bool{"disabled": true, "always": true, "outside_play": true}
	if !validPolicies[h.AutoRefresh] {
		return fmt.Errorf("auto_refresh must be one of [disabled, always, outside_play], got '%s'", h.AutoRefresh)
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetClientTimeout returns the liveness threshold as a time.Duration.
func (m *MessagingConfig) GetClientTimeout() time.Duration {
	return time.Duration(m.ClientTimeout) * time.Second
}

// GetTickInterval returns the tick interval as a time.Duration.
func (m *MessagingConfig) GetTickInterval() time.Duration {
	return time.Duration(m.TickIntervalMS) * time.Millisecond
}
