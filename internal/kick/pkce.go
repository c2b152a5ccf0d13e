package kick

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// 64 random bytes encode to an 86-character verifier, within the
	// 43-128 character range RFC 7636 allows.
	verifierBytes = 64
	stateBytes    = 16
)

// GeneratePKCE returns a new code verifier and its S256 code challenge.
// The verifier must never leave the process; only the challenge is sent
// in the authorize URL.
func GeneratePKCE() (verifier, challenge string, err error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	return verifier, ChallengeS256(verifier), nil
}

// ChallengeS256 derives the S256 code challenge from a verifier:
// SHA-256 over the verifier bytes, URL-safe base64 without padding.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns an opaque CSRF correlation token for a login
// attempt. It is not a secret proof, so it can be shorter than the
// verifier.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
