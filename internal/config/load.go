package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Default config file names probed in the working directory. The JSON file
// wins over the YAML file when both exist.
const (
	DefaultJSONFile = "rig-config.json"
	DefaultYAMLFile = "rig-config.yaml"
)

// Overrides carries CLI flag values. The zero value of each field means "not
// given"; flags take precedence over file and environment values.
type Overrides struct {
	Type     string
	RigHost  string
	RigPort  int
	HTTPPort int
	LogLevel string
}

// Load merges built-in defaults, the optional config file, RIGD_* environment
// variables and CLI flag overrides, in that order, then validates the result.
//
// path selects an explicit config file; when empty the default file names are
// probed and a missing file is not an error.
func Load(path string, overrides Overrides) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	} else {
		for _, name := range []string{DefaultYAMLFile, DefaultJSONFile} {
			if _, err := os.Stat(name); err != nil {
				continue
			}
			if err := loadFromFile(cfg, name); err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", name, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	applyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile unmarshals a YAML or JSON config file over cfg. Fields absent
// from the file keep their current values.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if isJSON(filename, data) {
		return json.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// isJSON decides the file format from the extension, falling back to sniffing
// the first byte.
func isJSON(filename string, data []byte) bool {
	if len(filename) > 5 && filename[len(filename)-5:] == ".json" {
		return true
	}
	if len(filename) > 5 && filename[len(filename)-5:] == ".yaml" {
		return false
	}
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// applyEnvOverrides applies RIGD_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("RIGD_RADIO_TYPE"); val != "" {
		cfg.Radio.Type = val
	}
	if val := os.Getenv("RIGD_RADIO_HOST"); val != "" {
		cfg.Radio.Host = val
	}
	if val := os.Getenv("RIGD_RADIO_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Radio.Port = port
		}
	}
	if val := os.Getenv("RIGD_HTTP_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("RIGD_HTTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("RIGD_POLL_INTERVAL"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			cfg.Radio.PollIntervalMs = ms
		}
	}
	if val := os.Getenv("RIGD_TUNE_DELAY"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			cfg.Radio.TuneDelayMs = ms
		}
	}
	if val := os.Getenv("RIGD_PTT_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.Radio.PTTEnabled = enabled
		}
	}
	if val := os.Getenv("RIGD_AUTH_SECRET"); val != "" {
		cfg.Server.AuthSecret = val
	}
	if val := os.Getenv("RIGD_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
}

// applyOverrides applies CLI flag values on top of everything else.
func applyOverrides(cfg *Config, o Overrides) {
	if o.Type != "" {
		cfg.Radio.Type = o.Type
	}
	if o.RigHost != "" {
		cfg.Radio.Host = o.RigHost
	}
	if o.RigPort != 0 {
		cfg.Radio.Port = o.RigPort
	}
	if o.HTTPPort != 0 {
		cfg.Server.Port = o.HTTPPort
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
}
