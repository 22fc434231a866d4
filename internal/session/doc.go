// Package session maintains the authenticated persistent connection to
// the gateway. It runs the challenge/connect handshake, correlates
// command responses by request id, keeps the link alive with heartbeat
// pings, and reconnects with capped exponential backoff when the
// connection drops unintentionally.
package session
