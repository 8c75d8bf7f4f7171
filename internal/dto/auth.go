package dto

import (
	"encoding/json"
	"time"
)

type RegisterRequest struct {
	Username      string          `json:"username"`
	PublicKey     string          `json:"publicKey"`
	ProfileImage  json.RawMessage `json:"profileImage,omitempty"` // encrypted payload, opaque to the server
	CaptchaToken  string          `json:"captchaToken"`
	CaptchaAnswer string          `json:"captchaAnswer"`
}

type LoginRequest struct {
	Username      string `json:"username"`
	CaptchaToken  string `json:"captchaToken"`
	CaptchaAnswer string `json:"captchaAnswer"`
}

// UserSummary is the public slice of the account echoed alongside a session.
type UserSummary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	PublicKey string    `json:"publicKey"`
	CreatedAt time.Time `json:"createdAt"`
}

type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	// IP is the client address the session was opened from, as the server saw
	// it. Clients persist it for display; it carries no authority.
	IP   string       `json:"ip"`
	User *UserSummary `json:"user,omitempty"`
	// RequestSecret is the HKDF-derived per-session signing secret. Issued
	// once here; the session identifier alone is never used as an HMAC key.
	RequestSecret string `json:"requestSecret"`
}

type CaptchaResponse struct {
	Token     string `json:"token"`
	Challenge string `json:"challenge"`
	// Solution is echoed at issuance; see the captcha package note on the
	// weakened guarantee.
	Solution string `json:"solution"`
}

type WipeRequest struct {
	Confirmation string `json:"confirmation"`
}
