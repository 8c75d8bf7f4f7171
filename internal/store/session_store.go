package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"zeroforums/internal/domain"
)

type SessionStore struct{ db *gorm.DB }

func (s *Store) Sessions() *SessionStore { return &SessionStore{db: s.DB} }

func (ss *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	return ss.db.WithContext(ctx).Create(sess).Error
}

func (ss *SessionStore) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var sess domain.Session
	if err := ss.db.WithContext(ctx).First(&sess, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (ss *SessionStore) Revoke(ctx context.Context, id domain.SessionID, at time.Time) error {
	return ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("revoked_at", at).Error
}

func (ss *SessionStore) DeleteExpired(ctx context.Context, before time.Time) error {
	return ss.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&domain.Session{}).Error
}
