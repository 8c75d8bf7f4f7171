package cryptoutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// ConstantTimeEqual reports whether a and b are equal without leaking the
// position of the first mismatching byte. Inputs of differing length are
// rejected after a single length check.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ConstantTimeEqualString is ConstantTimeEqual over strings.
func ConstantTimeEqualString(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Fingerprint returns a SHA-256 hex digest of the input.
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func errUnexpectedLength(got, want int) error {
	return fmt.Errorf("unexpected length %d, want %d", got, want)
}
