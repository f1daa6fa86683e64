// Package pipeline orchestrates a generation run end to end: fetch prompts
// from the session store, generate each one against the backend, resolve the
// reported outputs, and file them into the project tree.
//
// Items are processed strictly one at a time; the backend serializes work
// internally and a single in-flight request keeps its queue honest.
// Cancellation is observed between items only, so every item is either fully
// processed or never started. Per-item failures are collected in the summary
// and never abort the run; only losing the session or the backend itself is
// fatal.
package pipeline
