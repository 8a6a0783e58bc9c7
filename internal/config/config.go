package config

import (
	"fmt"
	"time"

	"github.com/openhamclock/rigd/internal/adapter"
)

// Default backend ports: rigctld's standard listener and flrig's XML-RPC
// server.
const (
	DefaultRigctldPort = 4532
	DefaultFlrigPort   = 12345
)

// Config is the complete daemon configuration.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Radio  RadioConfig  `json:"radio" yaml:"radio"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`

	// AuthSecret, when non-empty, enables JWT bearer auth on the write
	// endpoints.
	AuthSecret string `json:"authSecret" yaml:"authSecret"`
}

// RadioConfig holds the rig backend settings.
type RadioConfig struct {
	Type           string `json:"type" yaml:"type"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	PollIntervalMs int    `json:"pollInterval" yaml:"pollInterval"`
	PTTEnabled     bool   `json:"pttEnabled" yaml:"pttEnabled"`
	TuneDelayMs    int    `json:"tuneDelay" yaml:"tuneDelay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	Dir   string `json:"dir" yaml:"dir"`
}

// PollInterval returns the poll interval as a duration.
func (r RadioConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMs) * time.Millisecond
}

// TuneDelay returns the tune key-down delay as a duration.
func (r RadioConfig) TuneDelay() time.Duration {
	return time.Duration(r.TuneDelayMs) * time.Millisecond
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RigAddr returns the backend address.
func (r RadioConfig) RigAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Default returns the built-in baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Radio: RadioConfig{
			Type:           adapter.TypeMock,
			Host:           "localhost",
			PollIntervalMs: 1000,
			PTTEnabled:     false,
			TuneDelayMs:    1500,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "logs",
		},
	}
}

// Validate checks the merged configuration and fills the backend default
// port when none was given.
func (c *Config) Validate() error {
	switch c.Radio.Type {
	case adapter.TypeRigctld:
		if c.Radio.Port == 0 {
			c.Radio.Port = DefaultRigctldPort
		}
	case adapter.TypeFlrig:
		if c.Radio.Port == 0 {
			c.Radio.Port = DefaultFlrigPort
		}
	case adapter.TypeMock:
	default:
		return fmt.Errorf("invalid radio type %q, must be one of: rigctld, flrig, mock", c.Radio.Type)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Radio.Type != adapter.TypeMock && (c.Radio.Port <= 0 || c.Radio.Port > 65535) {
		return fmt.Errorf("invalid radio port %d", c.Radio.Port)
	}
	if c.Radio.PollIntervalMs <= 0 {
		return fmt.Errorf("poll interval %dms must be positive", c.Radio.PollIntervalMs)
	}
	if c.Radio.TuneDelayMs < 0 {
		return fmt.Errorf("tune delay %dms must not be negative", c.Radio.TuneDelayMs)
	}

	validLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: DEBUG, INFO, WARN, ERROR", c.Log.Level)
	}
	return nil
}
