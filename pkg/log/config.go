package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config is the declarative logger configuration.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File, when set, receives log output in addition to stderr.
	File string `json:"file" yaml:"file"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return NewLogger(), nil
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var format Format
	switch cfg.Format {
	case "", string(FormatText):
		format = FormatText
	case string(FormatJSON):
		format = FormatJSON
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("log: create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log: open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}

	return NewLogger(WithLevel(level), WithFormat(format), WithOutput(out)), nil
}
