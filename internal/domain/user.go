package domain

import "time"

type User struct {
	ID        UserID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string `gorm:"type:citext;uniqueIndex:ux_users_username" json:"username"`
	PublicKey string `gorm:"type:text;not null" json:"publicKey"`
	// ProfileImage holds the encrypted payload JSON produced by the client.
	// The server never sees the plaintext image.
	ProfileImage []byte    `gorm:"type:bytea" json:"-"`
	IsDisabled   bool      `gorm:"not null;default:false" json:"isDisabled"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
