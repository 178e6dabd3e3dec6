// Package config loads the optional YAML defaults file read by the
// demo command. The SDK itself takes all configuration through
// explicit constructor and setter calls; nothing here feeds the core.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the demo command's startup defaults.
type Config struct {
	Connection struct {
		String string `yaml:"string"`
	} `yaml:"connection"`
	Timeouts struct {
		DataMs    int `yaml:"data_ms"`
		CommandMs int `yaml:"command_ms"`
	} `yaml:"timeouts"`
	BufferSizeBytes int    `yaml:"buffer_size_bytes"`
	LogLevel        string `yaml:"log_level"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
