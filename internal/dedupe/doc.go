// Package dedupe provides a TTL-bounded, size-capped cache of seen keys.
// The transcript uses it to drop events that arrive twice when a history
// replay overlaps the live stream after a reconnect.
package dedupe
