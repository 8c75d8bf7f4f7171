package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zeroforums/internal/domain"
	"zeroforums/internal/reqsig"
)

// NonceStore is a durable reqsig.ReplayStore: the insert-or-ignore keeps
// nonce registration atomic across server instances sharing one database.
type NonceStore struct{ db *gorm.DB }

func (s *Store) Nonces() *NonceStore { return &NonceStore{db: s.DB} }

func (ns *NonceStore) Register(ctx context.Context, nonce string, expiresAt time.Time) (bool, error) {
	tx := ns.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.SeenNonce{Nonce: nonce, ExpiresAt: expiresAt})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (ns *NonceStore) Sweep(ctx context.Context, now time.Time) error {
	return ns.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.SeenNonce{}).Error
}

var _ reqsig.ReplayStore = (*NonceStore)(nil)
