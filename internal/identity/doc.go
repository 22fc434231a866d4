// Package identity holds the device keypair and produces signed connection
// assertions.
//
// # Overview
//
// The gateway authenticates devices by a signature over a canonical string
// bound to one connection attempt. The string is versioned: "v1" covers
// fingerprint, client descriptor, role, scopes, timestamp, and token; "v2"
// additionally binds the server's challenge nonce, defeating replay of a
// captured v1 assertion.
//
// Key material is supplied by the caller (an SSH private key file or an
// already-parsed signer); this package never generates or rotates keys.
//
// Fingerprints are lowercase hex SHA-256 of the wire-format public key,
// matching the format the gateway stores for registered devices.
package identity
