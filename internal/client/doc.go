// Package client provides typed helpers for the gateway's command
// surface: chat send/abort/history and session list/create. It sits on
// top of the session's raw SendCommand and owns the wire shapes of each
// method's params and payloads.
package client
