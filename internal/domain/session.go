package domain

import "time"

type Session struct {
	ID          SessionID `gorm:"type:uuid;primaryKey"`
	UserID      UserID    `gorm:"type:uuid;index"`
	ExpiresAt   time.Time `gorm:"not null"`
	RevokedAt   *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	IP          string    `gorm:"type:inet"`
	UserAgent   string    `gorm:"type:text"`
	Fingerprint string    `gorm:"type:text"`
}

func (Session) TableName() string { return "sessions" }

// Active reports whether the session can still be presented at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
