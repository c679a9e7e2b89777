package streaminghttp

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
)

// ErrSessionTokenInvalid is returned when an Mcp-Session-Id header does not
// carry a session id signed by this process's key.
var ErrSessionTokenInvalid = errors.New("invalid session token")

// sessionSigner wraps store-generated session ids in compact EdDSA JWS
// tokens so forged or tampered ids are rejected before any storage lookup.
type sessionSigner struct {
	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// newSessionSigner uses priv, or an ephemeral key when priv is nil.
func newSessionSigner(priv ed25519.PrivateKey) (*sessionSigner, error) {
	if priv == nil {
		var err error
		_, priv, err = ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session signing key: %w", err)
		}
	}
	return &sessionSigner{
		kid:  uuid.NewString(),
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

func (s *sessionSigner) Sign(sessionID string) (string, error) {
	opts := (&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", s.kid)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: s.priv}, opts)
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}
	jws, err := signer.Sign([]byte(sessionID))
	if err != nil {
		return "", fmt.Errorf("failed to sign session id: %w", err)
	}
	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize jws: %w", err)
	}
	return compact, nil
}

// Verify returns the session id carried by token.
func (s *sessionSigner) Verify(token string) (string, error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}
	if len(jws.Signatures) != 1 {
		return "", fmt.Errorf("%w: unexpected signatures: %d", ErrSessionTokenInvalid, len(jws.Signatures))
	}
	payload, err := jws.Verify(s.pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrSessionTokenInvalid)
	}
	return string(payload), nil
}
