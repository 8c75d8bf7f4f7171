package session

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/identity"
)

// State tracks the per-device lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Expired
	LoggedOut
	Wiped
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	case LoggedOut:
		return "logged out"
	case Wiped:
		return "wiped"
	default:
		return "unknown"
	}
}

// Record is the locally persisted session. Signature is an RSA-PSS signature
// by the device identity key over sessionId|userId|expiresAt; tampering with
// any of those fields invalidates the record.
type Record struct {
	SessionID     string          `json:"sessionId"`
	UserID        string          `json:"userId"`
	Username      string          `json:"username"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	Fingerprint   string          `json:"fingerprint"`
	IP            string          `json:"ip"`
	Signature     string          `json:"signature"`
	User          json.RawMessage `json:"user,omitempty"`
	Token         string          `json:"token"`
	RequestSecret string          `json:"requestSecret"`
}

func (r *Record) signingPayload() []byte {
	return []byte(strings.Join([]string{
		r.SessionID,
		r.UserID,
		strconv.FormatInt(r.ExpiresAt.UnixMilli(), 10),
	}, "|"))
}

// Seal signs the record with the device identity key.
func (r *Record) Seal(ident *identity.Manager) error {
	sig, err := ident.Sign(r.signingPayload())
	if err != nil {
		return err
	}
	r.Signature = cryptoutil.B64(sig)
	return nil
}

// VerifyEmbedded checks the embedded signature against the issuing identity
// key. Any tampering with sessionId/userId/expiresAt fails verification.
func (r *Record) VerifyEmbedded(ident *identity.Manager) bool {
	pub, err := ident.PublicKeyPEM()
	if err != nil {
		return false
	}
	sig, err := cryptoutil.B64Decode(r.Signature)
	if err != nil {
		return false
	}
	return identity.Verify(r.signingPayload(), sig, pub)
}
