package domain

import "time"

// LoginAttempt is the durable audit row behind the lockout tracker.
type LoginAttempt struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ClientKey string    `gorm:"type:text;index:ix_attempts_client"`
	Success   bool      `gorm:"not null"`
	At        time.Time `gorm:"not null;index:ix_attempts_at"`
}

func (LoginAttempt) TableName() string { return "login_attempts" }

// CaptchaToken is a single-use, short-lived challenge record. The solution is
// returned to the client at issuance, so the challenge acts as a friction and
// rate-limiting device rather than a proof of human solving.
type CaptchaToken struct {
	Token     string    `gorm:"type:text;primaryKey"`
	Challenge string    `gorm:"type:text;not null"`
	Solution  string    `gorm:"type:text;not null"`
	Used      bool      `gorm:"not null;default:false"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CaptchaToken) TableName() string { return "captcha_tokens" }

// SeenNonce records a request nonce for replay detection inside the freshness
// window. Rows past ExpiresAt are swept.
type SeenNonce struct {
	Nonce     string    `gorm:"type:text;primaryKey"`
	ExpiresAt time.Time `gorm:"not null;index:ix_nonces_expiry"`
}

func (SeenNonce) TableName() string { return "seen_nonces" }
