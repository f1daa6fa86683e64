// Package runlog persists pipeline run summaries to a SQLite database under
// the state directory.
//
// History is advisory: a run that cannot be recorded still succeeded, so
// callers log persistence errors and move on. A file lock serializes writers
// across processes; WAL mode and a bounded busy-retry cover the rest.
package runlog
