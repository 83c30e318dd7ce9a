package config

import (
	"os"
	"strconv"
)

// FromEnv overlays PIGEON_* environment variables onto cfg. Values that do
// not parse are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PIGEON_FLUSH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlushIntervalMs = n
		}
	}
	if v := os.Getenv("PIGEON_QUEUE_ENCODING"); v != "" {
		cfg.QueueEncoding = v
	}
	if v := os.Getenv("PIGEON_PAYLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PayloadMaxBytes = n
		}
	}
	if v := os.Getenv("PIGEON_MAX_NAME_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxNameBytes = n
		}
	}
	if v := os.Getenv("PIGEON_DELETE_FORCES_FLUSH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DeleteForcesFlush = b
		}
	}
}
