// ABOUTME: Builds signed device assertions binding an identity to one connection attempt.
// ABOUTME: Signs the canonical v1/v2 string; v2 additionally binds the server challenge nonce.

package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Assertion is the signed proof of key possession sent in the connect
// handshake. The gateway verifies the signature over the same canonical
// string and checks the fingerprint against its registered devices.
type Assertion struct {
	Fingerprint string `json:"fingerprint"`
	PublicKey   string `json:"publicKey"` // base64url, no padding
	Signature   string `json:"signature"` // base64url, no padding
	Timestamp   int64  `json:"timestamp"` // milliseconds
	Nonce       string `json:"nonce,omitempty"`
}

// AssertionParams describes one connection attempt to be signed.
type AssertionParams struct {
	ClientID   string
	ClientMode string
	Role       string
	Scopes     []string
	Token      string // bearer token, may be empty
	Nonce      string // server challenge nonce; empty selects the v1 string
}

// SignAssertion builds and signs a device assertion for a connection
// attempt. The canonical string is versioned: "v1" without a nonce, "v2"
// when the server issued a challenge nonce.
func (id *Identity) SignAssertion(p AssertionParams) (*Assertion, error) {
	ts := time.Now().UnixMilli()
	message := canonicalString(id.fingerprint, p, ts)

	sig, err := id.signer.Sign(rand.Reader, []byte(message))
	if err != nil {
		return nil, fmt.Errorf("%w: signing assertion: %v", ErrBadKeyMaterial, err)
	}

	enc := base64.RawURLEncoding
	return &Assertion{
		Fingerprint: id.fingerprint,
		PublicKey:   enc.EncodeToString(id.PublicKey()),
		Signature:   enc.EncodeToString(sig.Blob),
		Timestamp:   ts,
		Nonce:       p.Nonce,
	}, nil
}

// canonicalString builds the exact byte string both sides sign and verify.
// Field order is fixed; scopes are comma-joined in caller order.
func canonicalString(fingerprint string, p AssertionParams, ts int64) string {
	version := "v1"
	if p.Nonce != "" {
		version = "v2"
	}

	parts := []string{
		version,
		fingerprint,
		p.ClientID,
		p.ClientMode,
		p.Role,
		strings.Join(p.Scopes, ","),
		strconv.FormatInt(ts, 10),
		p.Token,
	}
	if p.Nonce != "" {
		parts = append(parts, p.Nonce)
	}
	return strings.Join(parts, "|")
}
