// ABOUTME: Tests for identity loading, fingerprints, and signed assertions.
// ABOUTME: Verifies signatures against the canonical string the way the gateway would.

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func testIdentity(t *testing.T) (*Identity, ed25519.PublicKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	return FromSigner(signer), pub
}

func TestFingerprint_StableHexSHA256(t *testing.T) {
	id, _ := testIdentity(t)

	fp := id.Fingerprint()
	assert.Len(t, fp, 64)
	assert.Equal(t, strings.ToLower(fp), fp)
	// Same key, same fingerprint.
	assert.Equal(t, fp, Fingerprint(id.signer.PublicKey()))
}

func TestParse_BadKeyMaterial(t *testing.T) {
	_, err := Parse([]byte("not a pem key"))
	assert.ErrorIs(t, err, ErrBadKeyMaterial)
}

func TestSignAssertion_V2_VerifiesAgainstCanonicalString(t *testing.T) {
	id, _ := testIdentity(t)

	params := AssertionParams{
		ClientID:   "coven-link",
		ClientMode: "interactive",
		Role:       "operator",
		Scopes:     []string{"chat", "canvas"},
		Token:      "tok-123",
		Nonce:      "n1",
	}
	assertion, err := id.SignAssertion(params)
	require.NoError(t, err)

	assert.Equal(t, id.Fingerprint(), assertion.Fingerprint)
	assert.Equal(t, "n1", assertion.Nonce)
	assert.Positive(t, assertion.Timestamp)

	// Rebuild the v2 canonical string and verify the signature the way the
	// gateway does.
	message := strings.Join([]string{
		"v2",
		id.Fingerprint(),
		"coven-link",
		"interactive",
		"operator",
		"chat,canvas",
		strconv.FormatInt(assertion.Timestamp, 10),
		"tok-123",
		"n1",
	}, "|")

	pubBytes, err := base64.RawURLEncoding.DecodeString(assertion.PublicKey)
	require.NoError(t, err)
	pubkey, err := ssh.ParsePublicKey(pubBytes)
	require.NoError(t, err)

	sigBlob, err := base64.RawURLEncoding.DecodeString(assertion.Signature)
	require.NoError(t, err)

	err = pubkey.Verify([]byte(message), &ssh.Signature{
		Format: pubkey.Type(),
		Blob:   sigBlob,
	})
	assert.NoError(t, err)
}

func TestSignAssertion_V1_WhenNoNonce(t *testing.T) {
	id, _ := testIdentity(t)

	assertion, err := id.SignAssertion(AssertionParams{
		ClientID:   "coven-link",
		ClientMode: "interactive",
		Role:       "node",
		Scopes:     []string{"exec"},
	})
	require.NoError(t, err)
	assert.Empty(t, assertion.Nonce)

	message := fmt.Sprintf("v1|%s|coven-link|interactive|node|exec|%d|",
		id.Fingerprint(), assertion.Timestamp)

	sigBlob, err := base64.RawURLEncoding.DecodeString(assertion.Signature)
	require.NoError(t, err)

	err = id.signer.PublicKey().Verify([]byte(message), &ssh.Signature{
		Format: id.signer.PublicKey().Type(),
		Blob:   sigBlob,
	})
	assert.NoError(t, err)
}

func TestSignAssertion_EmptyScopes(t *testing.T) {
	id, _ := testIdentity(t)

	assertion, err := id.SignAssertion(AssertionParams{
		ClientID:   "c",
		ClientMode: "m",
		Role:       "operator",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, assertion.Signature)
}
