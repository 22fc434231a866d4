// Package wire defines the JSON frame protocol spoken with the gateway.
//
// Three frame kinds exist: requests ("req") carry a method and params and
// expect a correlated response; responses ("res") resolve or reject a
// pending request by ID; events ("event") are server pushes with an
// optional monotonic sequence number.
//
// Decode never panics on malformed input; it returns an error the caller
// logs and drops, keeping the connection alive.
package wire
