package logging

import (
	"context"
	"log/slog"

	"subfetch/internal/services"
)

// Attribute keys shared across packages.
const (
	FieldComponent     = "component"
	FieldProvider      = "provider"
	FieldVideo         = "video"
	FieldStage         = "stage"
	FieldLanguage      = "language" // ISO 639-1
	FieldCorrelationID = "correlation_id"

	// FieldEventType classifies a line for filtering; WarnEvent and ErrorEvent set it.
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
)

// contextFields pairs attribute keys with the services lookups that feed them.
var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldVideo, services.VideoFromContext},
	{FieldStage, services.StageFromContext},
	{FieldProvider, services.ProviderFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// ContextFields returns the video, stage, provider and correlation id
// attributes present on ctx, in that order.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	for _, field := range contextFields {
		if value, ok := field.lookup(ctx); ok {
			fields = append(fields, slog.String(field.key, value))
		}
	}
	return fields
}

// WithContext adds the attributes of ContextFields to logger. A nil logger
// becomes a no-op.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
