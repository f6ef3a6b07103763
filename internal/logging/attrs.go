package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so callers need a single import.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Strings(key string, values []string) Attr { return slog.Any(key, values) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error records err under the "error" key. A nil error is omitted.
func Error(err error) Attr {
	if err == nil {
		return Attr{}
	}
	return slog.String("error", err.Error())
}

// Args converts attrs to the variadic form slog.Logger methods take.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i := range attrs {
		args[i] = attrs[i]
	}
	return args
}

// Decision groups the outcome of a selection under "decision".
func Decision(kind, result, reason string) Attr {
	return slog.Group("decision",
		slog.String("type", kind),
		slog.String("result", result),
		slog.String("reason", reason),
	)
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger becomes a no-op.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

var (
	defaultHint   = String(FieldErrorHint, "rerun with --log-level debug for details")
	defaultImpact = String(FieldImpact, "video processing continues without this step")
)

// WarnEvent logs a classified warning. The event type, a hint and an impact
// are added unless attrs already carry them.
func WarnEvent(logger *slog.Logger, msg, event string, attrs ...Attr) {
	emit(logger, slog.LevelWarn, msg, event, attrs, defaultHint, defaultImpact)
}

// ErrorEvent logs a classified error with an event type and hint.
func ErrorEvent(logger *slog.Logger, msg, event string, attrs ...Attr) {
	emit(logger, slog.LevelError, msg, event, attrs, defaultHint)
}

func emit(logger *slog.Logger, level slog.Level, msg, event string, attrs []Attr, defaults ...Attr) {
	if logger == nil {
		return
	}
	present := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		present[a.Key] = true
	}
	if !present[FieldEventType] {
		attrs = append(attrs, String(FieldEventType, event))
	}
	for _, d := range defaults {
		if !present[d.Key] {
			attrs = append(attrs, d)
		}
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
