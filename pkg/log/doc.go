// Package log provides Pigeon's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records are written by zerolog: the
// "json" format emits one JSON object per line, the "text" format uses
// zerolog's console writer for human-readable output.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.FormatText),
//	    log.WithOutput(os.Stderr),
//	)
//	l = l.With(log.Component("server"), log.Str("addr", ":8080"))
//	l.Info("server started", log.Int("topics", 3))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config (level, format
// and an optional log file).
//
// # Interop
//
// RedirectStdLog installs a slog handler backed by a Logger as the process
// default, which also captures output of the standard library log package.
package log
