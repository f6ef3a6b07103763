package services

import "context"

// field identifies one piece of per-run metadata carried on a context.
type field int

const (
	requestIDField field = iota
	videoField
	stageField
	providerField
)

func withField(ctx context.Context, key field, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func fieldFrom(ctx context.Context, key field) (string, bool) {
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithRequestID tags ctx with the run correlation id. Empty values are ignored
// by all With helpers.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withField(ctx, requestIDField, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return fieldFrom(ctx, requestIDField)
}

// WithVideo tags ctx with the path of the video being processed.
func WithVideo(ctx context.Context, path string) context.Context {
	return withField(ctx, videoField, path)
}

func VideoFromContext(ctx context.Context) (string, bool) {
	return fieldFrom(ctx, videoField)
}

// WithStage tags ctx with the acquisition stage, such as "query" or "fetch".
func WithStage(ctx context.Context, stage string) context.Context {
	return withField(ctx, stageField, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return fieldFrom(ctx, stageField)
}

// WithProvider tags ctx with the provider being queried.
func WithProvider(ctx context.Context, name string) context.Context {
	return withField(ctx, providerField, name)
}

func ProviderFromContext(ctx context.Context) (string, bool) {
	return fieldFrom(ctx, providerField)
}
