package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"zeroforums/internal/captcha"
	"zeroforums/internal/domain"
)

// CaptchaStore is the durable captcha.Store implementation.
type CaptchaStore struct{ db *gorm.DB }

func (s *Store) Captchas() *CaptchaStore { return &CaptchaStore{db: s.DB} }

func (cs *CaptchaStore) Save(ctx context.Context, rec captcha.Record) error {
	return cs.db.WithContext(ctx).Create(&domain.CaptchaToken{
		Token:     rec.Token,
		Challenge: rec.Challenge,
		Solution:  rec.Solution,
		Used:      rec.Used,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}).Error
}

func (cs *CaptchaStore) Get(ctx context.Context, token string) (captcha.Record, error) {
	var row domain.CaptchaToken
	if err := cs.db.WithContext(ctx).First(&row, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return captcha.Record{}, ErrRecordNotFound
		}
		return captcha.Record{}, err
	}
	return captcha.Record{
		Token:     row.Token,
		Challenge: row.Challenge,
		Solution:  row.Solution,
		Used:      row.Used,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (cs *CaptchaStore) MarkUsed(ctx context.Context, token string) error {
	tx := cs.db.WithContext(ctx).
		Model(&domain.CaptchaToken{}).
		Where("token = ? AND used = false", token).
		Update("used", true)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (cs *CaptchaStore) DeleteExpired(ctx context.Context, before time.Time) error {
	return cs.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&domain.CaptchaToken{}).Error
}

var _ captcha.Store = (*CaptchaStore)(nil)
