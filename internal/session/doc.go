// Package session reads StoryArt sessions from Redis and extracts the prompt
// records that require new artifacts.
//
// Sessions are stored upstream as TTL-bound JSON strings under
// storyart:session:{key}; an expired or unknown key is reported as a
// not-found error with an actionable message rather than stale data. Two
// legacy document shapes are tolerated: beats nested inside per-scene arrays
// (current) and a flat episode-level beat array (older exports).
package session
