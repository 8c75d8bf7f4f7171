package reqsig

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	hkdfInfoRequestAuth = "zeroforums-request-auth"
	derivedSecretSize   = 32

	// anonymousSeed is a fixed public value. Anonymous request signatures
	// prove nothing about the caller; they only give every request the same
	// envelope shape and keep replay/nonce handling uniform.
	anonymousSeed = "zeroforums-anonymous-v1"
)

// DeriveSessionSecret derives the per-session request-signing secret from the
// server secret and the session identifier via HKDF-SHA256. The session id on
// its own is never used as an HMAC key.
func DeriveSessionSecret(serverSecret []byte, sessionID string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, serverSecret, []byte(sessionID), []byte(hkdfInfoRequestAuth))
	out := make([]byte, derivedSecretSize)
	if _, err := io.ReadFull(kdf, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnonymousSecret returns the fixed secret used for unauthenticated calls.
func AnonymousSecret() []byte {
	sum := sha256.Sum256([]byte(anonymousSeed))
	return sum[:]
}
