package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// FlushIntervalMs is the period of the background resync and flush pass.
	FlushIntervalMs int `json:"flushIntervalMs" yaml:"flushIntervalMs"`
	// QueueEncoding selects how queue records are written: framed or newline.
	QueueEncoding string `json:"queueEncoding" yaml:"queueEncoding"`
	// PayloadMaxBytes caps message and value sizes.
	PayloadMaxBytes int `json:"payloadMaxBytes" yaml:"payloadMaxBytes"`
	// MaxNameBytes caps topic and key lengths. Zero means unlimited.
	MaxNameBytes int `json:"maxNameBytes" yaml:"maxNameBytes"`
	// DeleteForcesFlush makes every key delete durable before it returns.
	DeleteForcesFlush bool `json:"deleteForcesFlush" yaml:"deleteForcesFlush"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		FlushIntervalMs:   5000,
		QueueEncoding:     "framed",
		PayloadMaxBytes:   1 << 20,
		MaxNameBytes:      0,
		DeleteForcesFlush: true,
	}
}

// FlushInterval returns FlushIntervalMs as a duration.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.FlushIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("flushIntervalMs must be positive, got %d", c.FlushIntervalMs))
	}
	switch c.QueueEncoding {
	case "framed", "newline":
	default:
		errs = append(errs, fmt.Errorf("queueEncoding must be framed or newline, got %q", c.QueueEncoding))
	}
	if c.PayloadMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("payloadMaxBytes must be positive, got %d", c.PayloadMaxBytes))
	}
	if c.MaxNameBytes < 0 {
		errs = append(errs, fmt.Errorf("maxNameBytes must not be negative, got %d", c.MaxNameBytes))
	}
	return errors.Join(errs...)
}

// Load reads configuration from a JSON or YAML file (by extension). If path is
// empty, returns defaults. Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
