// Package swarm wraps the SwarmUI HTTP API used for image generation.
//
// One backend session is shared across all prompts in a pipeline run; the
// backend serializes work internally and per-prompt sessions would defeat its
// rate limiting. Artifact references returned by the backend are passed
// through untouched — they may be bare filenames, paths relative to the
// backend's output root, or absolute paths, and resolution is the path
// resolver's problem, not this client's.
package swarm
