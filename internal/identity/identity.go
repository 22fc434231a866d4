// ABOUTME: Device identity keypair loading and fingerprint computation.
// ABOUTME: Wraps an SSH signer supplied by the caller; the engine never generates key material.

package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// ErrBadKeyMaterial indicates the supplied key could not be parsed or used.
var ErrBadKeyMaterial = errors.New("bad key material")

// Identity is a long-lived device keypair. It is loaded once and read-only
// afterward; concurrent sessions share a single Identity.
type Identity struct {
	signer      ssh.Signer
	fingerprint string
}

// FromSigner wraps an already-parsed SSH signer.
func FromSigner(signer ssh.Signer) *Identity {
	return &Identity{
		signer:      signer,
		fingerprint: Fingerprint(signer.PublicKey()),
	}
}

// Load reads and parses a PEM-encoded SSH private key from disk.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity key: %w", err)
	}
	return Parse(data)
}

// Parse parses a PEM-encoded SSH private key.
func Parse(pemBytes []byte) (*Identity, error) {
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKeyMaterial, err)
	}
	return FromSigner(signer), nil
}

// Fingerprint computes the SHA256 fingerprint of a public key.
// Returns lowercase hex encoding without colons, matching the gateway's
// registered-device fingerprints.
func Fingerprint(pubkey ssh.PublicKey) string {
	hash := sha256.Sum256(pubkey.Marshal())
	return hex.EncodeToString(hash[:])
}

// Fingerprint returns the identity's public key fingerprint.
func (id *Identity) Fingerprint() string {
	return id.fingerprint
}

// PublicKey returns the wire-format public key bytes.
func (id *Identity) PublicKey() []byte {
	return id.signer.PublicKey().Marshal()
}
