package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"zeroforums/internal/domain"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	return u.db.WithContext(ctx).Create(usr).Error
}

func (u *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (u *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (u *UserStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}
