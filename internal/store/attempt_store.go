package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"zeroforums/internal/domain"
)

// LoginAttemptStore keeps the durable audit trail behind the in-memory
// lockout tracker. The tracker decides; these rows survive restarts for
// inspection and for rebuilding tracker state.
type LoginAttemptStore struct{ db *gorm.DB }

func (s *Store) LoginAttempts() *LoginAttemptStore { return &LoginAttemptStore{db: s.DB} }

func (as *LoginAttemptStore) Record(ctx context.Context, clientKey string, success bool, at time.Time) error {
	return as.db.WithContext(ctx).Create(&domain.LoginAttempt{
		ClientKey: clientKey,
		Success:   success,
		At:        at,
	}).Error
}

// ListSince returns every attempt after since in chronological order, across
// all client keys. The lockout tracker is rebuilt from this on startup.
func (as *LoginAttemptStore) ListSince(ctx context.Context, since time.Time) ([]domain.LoginAttempt, error) {
	var attempts []domain.LoginAttempt
	err := as.db.WithContext(ctx).
		Where("at > ?", since).
		Order("at ASC").
		Find(&attempts).Error
	return attempts, err
}

func (as *LoginAttemptStore) DeleteBefore(ctx context.Context, cutoff time.Time) error {
	return as.db.WithContext(ctx).
		Where("at < ?", cutoff).
		Delete(&domain.LoginAttempt{}).Error
}
