package reqsig

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/domain"
)

// DefaultMaxSkew bounds how far a request timestamp may drift from receipt
// time. The replay window matches it: a nonce is remembered for skew on both
// sides of now.
const DefaultMaxSkew = 5 * time.Minute

// SessionSecretFunc resolves the X-Session-Token header to the per-session
// signing secret. It must return domain.ErrSessionExpired (or wrap it) for
// unusable tokens.
type SessionSecretFunc func(ctx context.Context, token string) ([]byte, error)

type Validator struct {
	Replay        ReplayStore
	SessionSecret SessionSecretFunc
	MaxSkew       time.Duration
	Now           func() time.Time
}

func NewValidator(replay ReplayStore, sessionSecret SessionSecretFunc) *Validator {
	return &Validator{
		Replay:        replay,
		SessionSecret: sessionSecret,
		MaxSkew:       DefaultMaxSkew,
		Now:           time.Now,
	}
}

// Validate recomputes the expected signature for r over body and checks
// timestamp freshness, nonce uniqueness and signature correctness. It never
// downgrades a failure: any mismatch rejects the request.
func (v *Validator) Validate(r *http.Request, body []byte) error {
	sig := r.Header.Get(HeaderSignature)
	if sig == "" {
		return &domain.SecurityError{Kind: domain.MissingSignature}
	}
	ts := r.Header.Get(HeaderTimestamp)
	nonce := r.Header.Get(HeaderNonce)
	requestID := r.Header.Get(HeaderRequestID)
	if ts == "" || nonce == "" || requestID == "" {
		return domain.NewValidationError("headers", "missing timestamp, nonce or request id")
	}

	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.NewValidationError(HeaderTimestamp, "unparsable timestamp")
	}
	now := v.Now().UTC()
	sent := time.UnixMilli(millis).UTC()
	skew := now.Sub(sent)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.MaxSkew {
		return domain.NewValidationError(HeaderTimestamp, "timestamp outside freshness window")
	}

	secret := AnonymousSecret()
	if token := r.Header.Get(HeaderSessionToken); token != "" {
		secret, err = v.SessionSecret(r.Context(), token)
		if err != nil {
			return &domain.SecurityError{Kind: domain.InvalidSignature}
		}
	}

	expected := computeMAC(secret, r.Method, r.URL.Path, body, ts, nonce, requestID)
	got, err := cryptoutil.B64Decode(sig)
	if err != nil || !cryptoutil.ConstantTimeEqual(expected, got) {
		return &domain.SecurityError{Kind: domain.InvalidSignature}
	}

	// Replay check runs after signature verification so unauthenticated
	// garbage cannot fill the nonce store.
	fresh, err := v.Replay.Register(r.Context(), nonce, now.Add(v.MaxSkew))
	if err != nil {
		return err
	}
	if !fresh {
		return &domain.SecurityError{Kind: domain.InvalidSignature}
	}
	return nil
}
