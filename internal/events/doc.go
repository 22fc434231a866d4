// Package events defines the canonical push-event model and the translator
// that produces it.
//
// The gateway describes the same logical occurrence through two parallel
// shapes: a raw per-token stream (chat.token) and a batched turn-state
// stream (chat.turn). The translator collapses both, plus the
// already-canonical event names, into one Canonical shape the router
// dispatches. Translation never fails — malformed or unrecognized frames
// are logged and dropped so bad remote data cannot tear down a session.
package events
