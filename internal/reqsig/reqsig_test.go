package reqsig_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"zeroforums/internal/domain"
	"zeroforums/internal/reqsig"
)

func newValidator(secret []byte) *reqsig.Validator {
	return reqsig.NewValidator(reqsig.NewMemoryReplayStore(), func(ctx context.Context, token string) ([]byte, error) {
		if token == "good-token" {
			return secret, nil
		}
		return nil, domain.ErrSessionExpired
	})
}

func TestValidateRoundTripAnonymous(t *testing.T) {
	v := newValidator(nil)
	signer := &reqsig.Signer{Secret: reqsig.AnonymousSecret()}

	body := []byte(`{"username":"alice"}`)
	headers, err := signer.Headers("POST", "/v1/auth/register", body)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/auth/register", bytes.NewReader(body))
	req.Header = headers
	if err := v.Validate(req, body); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRoundTripSession(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 32)
	v := newValidator(secret)
	signer := &reqsig.Signer{Secret: secret, SessionToken: "good-token"}

	headers, err := signer.Headers("POST", "/v1/auth/logout", nil)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	req := httptest.NewRequest("POST", "/v1/auth/logout", nil)
	req.Header = headers
	if err := v.Validate(req, nil); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsTamperedBody(t *testing.T) {
	v := newValidator(nil)
	signer := &reqsig.Signer{Secret: reqsig.AnonymousSecret()}

	body := []byte(`{"username":"alice"}`)
	headers, err := signer.Headers("POST", "/v1/auth/register", body)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}

	tampered := []byte(`{"username":"mallory"}`)
	req := httptest.NewRequest("POST", "/v1/auth/register", bytes.NewReader(tampered))
	req.Header = headers

	err = v.Validate(req, tampered)
	var se *domain.SecurityError
	if !errors.As(err, &se) || se.Kind != domain.InvalidSignature {
		t.Fatalf("expected INVALID_SIGNATURE, got %v", err)
	}
}

func TestValidateRejectsMissingSignature(t *testing.T) {
	v := newValidator(nil)
	req := httptest.NewRequest("GET", "/v1/captcha", nil)

	err := v.Validate(req, nil)
	var se *domain.SecurityError
	if !errors.As(err, &se) || se.Kind != domain.MissingSignature {
		t.Fatalf("expected MISSING_SIGNATURE, got %v", err)
	}
}

func TestValidateRejectsStaleTimestamp(t *testing.T) {
	v := newValidator(nil)
	signer := &reqsig.Signer{
		Secret: reqsig.AnonymousSecret(),
		Now:    func() time.Time { return time.Now().Add(-10 * time.Minute) },
	}

	headers, err := signer.Headers("GET", "/v1/captcha", nil)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	req := httptest.NewRequest("GET", "/v1/captcha", nil)
	req.Header = headers

	err = v.Validate(req, nil)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for stale timestamp, got %v", err)
	}
}

func TestValidateAcceptsSkewWithinWindow(t *testing.T) {
	v := newValidator(nil)
	signer := &reqsig.Signer{
		Secret: reqsig.AnonymousSecret(),
		Now:    func() time.Time { return time.Now().Add(4 * time.Minute) },
	}

	headers, err := signer.Headers("GET", "/v1/captcha", nil)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	req := httptest.NewRequest("GET", "/v1/captcha", nil)
	req.Header = headers
	if err := v.Validate(req, nil); err != nil {
		t.Fatalf("expected 4-minute future skew to pass, got %v", err)
	}
}

func TestValidateRejectsReplay(t *testing.T) {
	v := newValidator(nil)
	signer := &reqsig.Signer{Secret: reqsig.AnonymousSecret()}

	headers, err := signer.Headers("GET", "/v1/captcha", nil)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}

	first := httptest.NewRequest("GET", "/v1/captcha", nil)
	first.Header = headers
	if err := v.Validate(first, nil); err != nil {
		t.Fatalf("first request: %v", err)
	}

	replay := httptest.NewRequest("GET", "/v1/captcha", nil)
	replay.Header = headers
	err = v.Validate(replay, nil)
	var se *domain.SecurityError
	if !errors.As(err, &se) || se.Kind != domain.InvalidSignature {
		t.Fatalf("expected replay rejection, got %v", err)
	}
}

func TestValidateRejectsExpiredSessionToken(t *testing.T) {
	v := newValidator(bytes.Repeat([]byte{0x42}, 32))
	signer := &reqsig.Signer{Secret: reqsig.AnonymousSecret(), SessionToken: "stale-token"}

	headers, err := signer.Headers("POST", "/v1/auth/logout", nil)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	req := httptest.NewRequest("POST", "/v1/auth/logout", nil)
	req.Header = headers

	err = v.Validate(req, nil)
	var se *domain.SecurityError
	if !errors.As(err, &se) || se.Kind != domain.InvalidSignature {
		t.Fatalf("expected invalid signature for unusable token, got %v", err)
	}
}

func TestValidateRejectsUnparsableTimestamp(t *testing.T) {
	v := newValidator(nil)
	signer := &reqsig.Signer{Secret: reqsig.AnonymousSecret()}

	headers, err := signer.Headers("GET", "/v1/captcha", nil)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	headers.Set(reqsig.HeaderTimestamp, "not-a-number")
	req := httptest.NewRequest("GET", "/v1/captcha", nil)
	req.Header = headers

	err = v.Validate(req, nil)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeriveSessionSecretIsDeterministicAndScoped(t *testing.T) {
	server := []byte("server-root-secret")

	a1, err := reqsig.DeriveSessionSecret(server, "session-a")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	a2, err := reqsig.DeriveSessionSecret(server, "session-a")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := reqsig.DeriveSessionSecret(server, "session-b")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if !bytes.Equal(a1, a2) {
		t.Fatalf("same inputs produced different secrets")
	}
	if bytes.Equal(a1, b) {
		t.Fatalf("different sessions share a secret")
	}
	if len(a1) != 32 {
		t.Fatalf("expected 32-byte secret, got %d", len(a1))
	}
}

func TestMemoryReplayStoreSweep(t *testing.T) {
	store := reqsig.NewMemoryReplayStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		fresh, err := store.Register(ctx, "nonce-"+strconv.Itoa(i), time.Now().Add(-time.Minute))
		if err != nil || !fresh {
			t.Fatalf("register %d: fresh=%v err=%v", i, fresh, err)
		}
	}
	if err := store.Sweep(ctx, time.Now()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// After the sweep, expired nonces may be registered again.
	fresh, err := store.Register(ctx, "nonce-0", time.Now().Add(time.Minute))
	if err != nil || !fresh {
		t.Fatalf("expected swept nonce to be fresh again: fresh=%v err=%v", fresh, err)
	}
}
