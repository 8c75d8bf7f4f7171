// Package convkey manages per-conversation symmetric session keys. Keys live
// in a device-local sqlite keyring; each conversation identifier maps to one
// active key plus any retired keys kept for decrypting backlog after rotation.
package convkey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/envelope"
)

var ErrNoKey = errors.New("convkey: no key for conversation")

// ConversationKey is a keyring row. RetiredAt is nil for the active key.
type ConversationKey struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID string    `gorm:"type:text;index:ix_convkeys_conv"`
	Key            []byte    `gorm:"type:blob;not null"`
	CreatedAt      time.Time `gorm:"not null"`
	RetiredAt      *time.Time
}

func (ConversationKey) TableName() string { return "conversation_keys" }

type Manager struct {
	db *gorm.DB
}

// Open prepares the keyring database at path, creating it when absent.
func Open(path string) (*Manager, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ConversationKey{}); err != nil {
		return nil, err
	}
	return &Manager{db: db}, nil
}

// GenerateSessionKey produces a new random 256-bit key. Collisions between
// calls are cryptographically negligible; no dedup check is performed.
func GenerateSessionKey() ([]byte, error) {
	return cryptoutil.RandomBytes(envelope.KeySize)
}

// EnsureKey returns the active key for conversationID, generating and storing
// one when the conversation is new.
func (m *Manager) EnsureKey(ctx context.Context, conversationID string) ([]byte, error) {
	key, err := m.activeKey(ctx, conversationID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrNoKey) {
		return nil, err
	}
	fresh, err := GenerateSessionKey()
	if err != nil {
		return nil, err
	}
	row := ConversationKey{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Key:            fresh,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

// Encrypt seals plaintext under the conversation's active key with the
// conversation identifier bound as associated data.
func (m *Manager) Encrypt(ctx context.Context, conversationID string, plaintext []byte) (*envelope.Envelope, error) {
	key, err := m.EnsureKey(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return envelope.Seal(plaintext, key, conversationID)
}

// Decrypt opens env, trying the active key first and then retired keys so
// backlog written before a rotation stays readable. Fails closed when no key
// authenticates.
func (m *Manager) Decrypt(ctx context.Context, conversationID string, env *envelope.Envelope) ([]byte, error) {
	keys, err := m.allKeys(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if plaintext, err := envelope.Open(env, k, conversationID); err == nil {
			return plaintext, nil
		}
	}
	return nil, envelope.ErrDecryptionFailed
}

// EncryptFile seals file bytes with a plaintext metadata sidecar.
func (m *Manager) EncryptFile(ctx context.Context, conversationID string, data []byte, meta envelope.FileMeta) (*envelope.Payload, error) {
	key, err := m.EnsureKey(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return envelope.SealFile(data, meta, key, conversationID)
}

// DecryptFile opens a file payload under the conversation's keys.
func (m *Manager) DecryptFile(ctx context.Context, conversationID string, p *envelope.Payload) ([]byte, *envelope.FileMeta, error) {
	keys, err := m.allKeys(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range keys {
		if data, meta, err := envelope.OpenBinary(p, k, conversationID); err == nil {
			return data, meta, nil
		}
	}
	return nil, nil, envelope.ErrDecryptionFailed
}

// Rotate retires the active key and installs a fresh one. Retired keys are
// kept so existing ciphertext remains decryptable.
func (m *Manager) Rotate(ctx context.Context, conversationID string) error {
	fresh, err := GenerateSessionKey()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ConversationKey{}).
			Where("conversation_id = ? AND retired_at IS NULL", conversationID).
			Update("retired_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&ConversationKey{
			ID:             uuid.New(),
			ConversationID: conversationID,
			Key:            fresh,
			CreatedAt:      now,
		}).Error
	})
}

// Wipe deletes every key in the keyring. Irreversible.
func (m *Manager) Wipe(ctx context.Context) error {
	return m.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&ConversationKey{}).Error
}

func (m *Manager) activeKey(ctx context.Context, conversationID string) ([]byte, error) {
	var row ConversationKey
	err := m.db.WithContext(ctx).
		Where("conversation_id = ? AND retired_at IS NULL", conversationID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoKey
	}
	if err != nil {
		return nil, err
	}
	return row.Key, nil
}

func (m *Manager) allKeys(ctx context.Context, conversationID string) ([][]byte, error) {
	var rows []ConversationKey
	err := m.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("retired_at IS NOT NULL, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoKey
	}
	keys := make([][]byte, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key)
	}
	return keys, nil
}
