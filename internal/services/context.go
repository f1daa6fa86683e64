package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	sessionKeyKey contextKey = "session_key"
	beatKey       contextKey = "beat_id"
	requestIDKey  contextKey = "request_id"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the pipeline run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSessionKey annotates context with the session store key.
func WithSessionKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKeyKey, key)
}

// SessionKeyFromContext extracts the session store key if present.
func SessionKeyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionKeyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBeat annotates context with the beat identifier being processed.
func WithBeat(ctx context.Context, beatID string) context.Context {
	if beatID == "" {
		return ctx
	}
	return context.WithValue(ctx, beatKey, beatID)
}

// BeatFromContext extracts the beat identifier if present.
func BeatFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(beatKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
