package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks lookups that failed permanently: expired sessions,
	// artifacts absent from every date bucket.
	ErrNotFound = errors.New("not found")
	// ErrMalformed marks session documents that could not be parsed into
	// prompt records.
	ErrMalformed = errors.New("malformed document")
	// ErrBackend marks non-transient generation backend failures (4xx,
	// rejected prompts, unusable responses).
	ErrBackend = errors.New("backend error")
	// ErrTimeout marks operations that exhausted their deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures worth retrying (connection errors, 5xx).
	ErrTransient = errors.New("transient failure")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks inputs that failed local validation.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Reason extracts a human-readable reason string for per-item failure
// reporting, stripping the leading sentinel prefix when present.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrNotFound, ErrMalformed, ErrBackend, ErrTimeout, ErrTransient, ErrConfiguration, ErrValidation} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
