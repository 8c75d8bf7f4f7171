package store

import (
	"context"

	"zeroforums/internal/domain"
)

// DeleteUserData removes every server-side trace of a user inside one
// transaction: sessions first, then the user row. Login attempts are keyed by
// client, not user, and age out on their own.
func (s *Store) DeleteUserData(ctx context.Context, userID domain.UserID) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if err := tx.DB.Where("user_id = ?", userID).Delete(&domain.Session{}).Error; err != nil {
			return err
		}
		return tx.DB.Where("id = ?", userID).Delete(&domain.User{}).Error
	})
}
