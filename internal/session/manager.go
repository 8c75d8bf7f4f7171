// Package session drives the per-device credential lifecycle:
// Anonymous -> Authenticating -> Authenticated -> (Expired | LoggedOut | Wiped).
// The session record lives in a local JSON file; the identity keypair and
// conversation keyring are owned by their managers and destroyed on wipe.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"time"

	"zeroforums/internal/convkey"
	"zeroforums/internal/domain"
	"zeroforums/internal/dto"
	"zeroforums/internal/envelope"
	"zeroforums/internal/identity"
	"zeroforums/internal/lockout"
)

var usernameRE = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

// WipeConfirmationPhrase must match exactly before local destruction begins.
const WipeConfirmationPhrase = "delete my account forever"

const localClientKey = "local-device"

type Manager struct {
	api      *Client
	identity *identity.Manager
	keys     *convkey.Manager
	lockout  lockout.Tracker
	path     string // local session record file

	state  State
	record *Record
	now    func() time.Time
}

func NewManager(api *Client, ident *identity.Manager, keys *convkey.Manager, path string) *Manager {
	return &Manager{
		api:      api,
		identity: ident,
		keys:     keys,
		lockout:  lockout.NewMemory(lockout.DefaultPolicy()),
		path:     path,
		state:    Anonymous,
		now:      time.Now,
	}
}

func (m *Manager) State() State { return m.state }

// Current returns the active session record, or nil when not authenticated.
func (m *Manager) Current() *Record { return m.record }

// Register creates an account. The profile image, when present, is encrypted
// under a fresh single-use key before it leaves the device.
func (m *Manager) Register(ctx context.Context, username string, profileImage []byte, imageMeta envelope.FileMeta, captchaToken, captchaAnswer string) error {
	if !usernameRE.MatchString(username) {
		return domain.NewValidationError("username", "must be 3-50 characters of letters, digits or underscore")
	}
	m.state = Authenticating

	if err := m.identity.Initialize(); err != nil {
		m.state = Anonymous
		return err
	}
	pub, err := m.identity.PublicKeyPEM()
	if err != nil {
		m.state = Anonymous
		return err
	}

	req := dto.RegisterRequest{
		Username:      username,
		PublicKey:     string(pub),
		CaptchaToken:  captchaToken,
		CaptchaAnswer: captchaAnswer,
	}
	if len(profileImage) > 0 {
		key, err := convkey.GenerateSessionKey()
		if err != nil {
			m.state = Anonymous
			return err
		}
		payload, err := envelope.SealImage(profileImage, imageMeta, key, "profile:"+username)
		if err != nil {
			m.state = Anonymous
			return err
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			m.state = Anonymous
			return err
		}
		req.ProfileImage = encoded
	}

	resp, err := m.api.Register(ctx, req)
	if err != nil {
		m.state = Anonymous
		return err
	}
	return m.adopt(resp)
}

// Login authenticates against the server. The local lockout state is
// consulted before any network traffic, and both outcomes are recorded.
func (m *Manager) Login(ctx context.Context, username, captchaToken, captchaAnswer string) error {
	if err := m.lockout.Check(ctx, localClientKey); err != nil {
		return err
	}
	m.state = Authenticating

	resp, err := m.api.Login(ctx, dto.LoginRequest{
		Username:      username,
		CaptchaToken:  captchaToken,
		CaptchaAnswer: captchaAnswer,
	})
	if err != nil {
		m.state = Anonymous
		_ = m.lockout.Record(ctx, localClientKey, false)
		return err
	}
	_ = m.lockout.Record(ctx, localClientKey, true)

	if err := m.identity.Initialize(); err != nil {
		m.state = Anonymous
		return err
	}
	return m.adopt(resp)
}

// Logout notifies the server on a best-effort basis, then clears the local
// session unconditionally. A failed server call never leaves the device
// logged in.
func (m *Manager) Logout(ctx context.Context) error {
	if m.record != nil {
		if err := m.api.Logout(ctx, m.record); err != nil {
			slog.Warn("logout notification failed, clearing local session anyway", "error", err)
		}
	}
	if err := m.clearLocalSession(); err != nil {
		return err
	}
	m.state = LoggedOut
	return nil
}

// WipeAccount destroys the account. Server-side deletion is requested first;
// local destruction of key material, keyring and session proceeds regardless
// of the network outcome and is irreversible. A second wipe with no session
// no-ops safely.
func (m *Manager) WipeAccount(ctx context.Context, confirmation string) error {
	if confirmation != WipeConfirmationPhrase {
		return domain.NewValidationError("confirmation", "confirmation phrase mismatch")
	}
	if m.record != nil {
		if err := m.api.Wipe(ctx, m.record, confirmation); err != nil {
			slog.Warn("server wipe request failed, clearing local state anyway", "error", err)
		}
	}

	var firstErr error
	if err := m.identity.Clear(); err != nil {
		firstErr = err
	}
	if m.keys != nil {
		if err := m.keys.Wipe(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := m.clearLocalSession(); err != nil && firstErr == nil {
		firstErr = err
	}
	_ = m.lockout.Clear(ctx, localClientKey)
	m.state = Wiped
	return firstErr
}

// CheckSession restores a persisted session on start. Expired records and
// records whose embedded signature fails verification are cleared and
// reported invalid.
func (m *Manager) CheckSession(ctx context.Context) (State, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.state = Anonymous
		return m.state, nil
	}
	if err != nil {
		return m.state, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = m.clearLocalSession()
		m.state = Anonymous
		return m.state, nil
	}
	if m.now().After(rec.ExpiresAt) {
		_ = m.clearLocalSession()
		m.state = Expired
		return m.state, nil
	}
	if err := m.identity.Initialize(); err != nil {
		return m.state, err
	}
	if !rec.VerifyEmbedded(m.identity) {
		_ = m.clearLocalSession()
		m.state = Anonymous
		return m.state, nil
	}

	m.record = &rec
	m.state = Authenticated
	return m.state, nil
}

func (m *Manager) adopt(resp dto.SessionResponse) error {
	rec := Record{
		SessionID:     resp.SessionID,
		UserID:        resp.UserID,
		Username:      resp.Username,
		CreatedAt:     resp.CreatedAt,
		ExpiresAt:     resp.ExpiresAt,
		Fingerprint:   m.api.Fingerprint,
		IP:            resp.IP,
		Token:         resp.Token,
		RequestSecret: resp.RequestSecret,
	}
	if resp.User != nil {
		user, err := json.Marshal(resp.User)
		if err != nil {
			m.state = Anonymous
			return err
		}
		rec.User = user
	}
	if err := rec.Seal(m.identity); err != nil {
		m.state = Anonymous
		return err
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		m.state = Anonymous
		return err
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		m.state = Anonymous
		return err
	}
	m.record = &rec
	m.state = Authenticated
	return nil
}

func (m *Manager) clearLocalSession() error {
	m.record = nil
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
