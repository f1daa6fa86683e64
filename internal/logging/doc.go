// Package logging configures slog for the pipeline.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log aggregation. When no format is configured the console
// format is chosen only if stdout is a TTY. Context helpers attach run,
// session, and beat identifiers to every record emitted during an operation.
package logging
