package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrSessionExpired     = errors.New("session expired or revoked")
	ErrCaptchaFailed      = errors.New("CAPTCHA validation failed")
	ErrNotFound           = errors.New("record not found")
)

// SecurityErrorKind identifies why a request was rejected before reaching
// business logic.
type SecurityErrorKind string

const (
	MissingSignature  SecurityErrorKind = "MISSING_SIGNATURE"
	InvalidSignature  SecurityErrorKind = "INVALID_SIGNATURE"
	RateLimitExceeded SecurityErrorKind = "RATE_LIMIT_EXCEEDED"
)

type SecurityError struct {
	Kind SecurityErrorKind
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security error: %s", e.Kind)
}

// IsSecurityError reports whether err carries the given kind.
func IsSecurityError(err error, kind SecurityErrorKind) bool {
	var se *SecurityError
	return errors.As(err, &se) && se.Kind == kind
}

// ValidationError marks malformed input the caller can correct and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthenticationError covers credential, session and lockout failures. The
// message is deliberately generic so callers cannot tell which factor failed.
// LockedUntil is set only for lockout rejections.
type AuthenticationError struct {
	Reason      string
	LockedUntil time.Time
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return e.Reason
}

// ConflictError marks a uniqueness violation (taken username).
type ConflictError struct {
	Resource string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Resource)
}

// CryptoOperationError wraps a primitive failure. Decryption failures are
// reported through this type and never yield partial plaintext.
type CryptoOperationError struct {
	Op  string
	Err error
}

func (e *CryptoOperationError) Error() string {
	return fmt.Sprintf("crypto operation %s failed: %v", e.Op, e.Err)
}

func (e *CryptoOperationError) Unwrap() error { return e.Err }
