// Package services defines the shared error taxonomy and context helpers used
// across pipeline components.
//
// Errors are tagged with sentinel markers via Wrap so callers can classify a
// failure with errors.Is without inspecting message strings: the orchestrator
// uses the markers to decide whether a failure aborts the run or is recorded
// against a single item. Context helpers thread run, session, and beat
// identifiers through blocking operations for log correlation.
package services
