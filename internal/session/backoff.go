// ABOUTME: Reconnect delay schedule.
// ABOUTME: Exponential doubling from a base delay, capped.

package session

import "time"

// backoffDelay returns the wait before reconnect attempt k (zero-based):
// base doubled k times, capped at max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return max
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}
