package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the teles-server configuration, loadable from a YAML file and
// overridable per-flag.
type Config struct {
	// Bind is the TCP address the protocol listener uses.
	Bind string `yaml:"bind"`
	// HTTPBind, when set, serves the websocket transport on /ws and
	// prometheus metrics on /metrics.
	HTTPBind string `yaml:"httpBind"`
	// Snapshot is the path of the JSON snapshot loaded at startup and saved
	// at shutdown. Empty disables persistence.
	Snapshot string    `yaml:"snapshot"`
	Log      LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File enables rotated file logging instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

func defaultConfig() *Config {
	return &Config{
		Bind: "localhost:2856",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
