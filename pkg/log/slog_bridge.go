package log

import (
	"context"
	"log/slog"
)

// bridgeHandler is a slog.Handler that forwards records to a Logger so that
// libraries logging through slog or the standard log package end up in the
// same pipeline as our own entries.
type bridgeHandler struct {
	logger Logger
	attrs  []Field
	group  string
}

func newBridgeHandler(logger Logger) *bridgeHandler {
	return &bridgeHandler{logger: logger}
}

// NewSlogHandler returns a slog.Handler writing through logger.
func NewSlogHandler(logger Logger) slog.Handler {
	return newBridgeHandler(logger)
}

// Enabled gates by the Logger level.
func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.GetLevel() <= fromSlogLevel(level)
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]Field, 0, len(h.attrs)+r.NumAttrs())
	fields = append(fields, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.field(a))
		return true
	})

	switch fromSlogLevel(r.Level) {
	case DebugLevel:
		h.logger.Debug(r.Message, fields...)
	case InfoLevel:
		h.logger.Info(r.Message, fields...)
	case WarnLevel:
		h.logger.Warn(r.Message, fields...)
	default:
		h.logger.Error(r.Message, fields...)
	}
	return nil
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append([]Field{}, h.attrs...)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, h.field(a))
	}
	return &nh
}

// WithGroup prefixes subsequent attribute keys with name.
func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if h.group != "" {
		nh.group = h.group + "." + name
	} else {
		nh.group = name
	}
	return &nh
}

func (h *bridgeHandler) field(a slog.Attr) Field {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return F(key, a.Value.Resolve().Any())
}

// RedirectStdLog makes logger the process-wide slog default. Since slog.SetDefault
// also rewires the standard library log package, output from dependencies
// that use log.Printf is captured as well.
func RedirectStdLog(logger Logger) {
	slog.SetDefault(slog.New(newBridgeHandler(logger.WithComponent("stdlog"))))
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level <= slog.LevelDebug:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	default:
		return ErrorLevel
	}
}
