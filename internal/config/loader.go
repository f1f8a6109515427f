package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*ReplayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg ReplayConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*ReplayConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*ReplayConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills optional fields on a config assembled outside Load,
// e.g. one built from CLI flags alone.
func (c *ReplayConfig) ApplyDefaults() {
	c.applyDefaults()
}

// StartTime returns the parsed logical start time, zero when unset.
func (c *ReplayConfig) StartTime() time.Time {
	if c.Inputs.Start == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, c.Inputs.Start)
	return t
}

// EndTime returns the parsed end time, zero when unset.
func (c *ReplayConfig) EndTime() time.Time {
	if c.Inputs.End == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, c.Inputs.End)
	return t
}
