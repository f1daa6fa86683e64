package logging

import (
	"context"
	"log/slog"

	"storyart/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for pipeline run identifiers.
	FieldRunID = "run_id"
	// FieldSessionKey is the standardized structured logging key for session store keys.
	FieldSessionKey = "session_key"
	// FieldBeatID is the standardized structured logging key for beat identifiers.
	FieldBeatID = "beat_id"
	// FieldFormat is the standardized structured logging key for artifact formats.
	FieldFormat = "format"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags records for log-based alerting and filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing next step for a failure.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if key, ok := services.SessionKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionKey, key))
	}
	if beat, ok := services.BeatFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBeatID, beat))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
