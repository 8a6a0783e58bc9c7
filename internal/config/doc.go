// Package config loads the daemon configuration: built-in defaults merged
// with an optional rig-config.yaml/rig-config.json file, RIGD_* environment
// variables and CLI flag overrides, flags winning.
package config
