package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"zeroforums/internal/cryptoutil"
)

const (
	// Algorithm is the tag carried on every envelope.
	Algorithm = "AES-GCM"

	KeySize   = 32
	NonceSize = 12
	SaltSize  = 16
)

var (
	ErrDecryptionFailed = errors.New("envelope: message authentication failed")
	ErrBadEnvelope      = errors.New("envelope: malformed envelope")
	ErrBadKey           = errors.New("envelope: invalid key length")
)

// Envelope is the self-describing encrypted payload bundle as it travels in
// JSON. The salt is carried for wire compatibility with existing clients; the
// AEAD mode does not consume it and it adds no cryptographic strength.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	Algorithm  string `json:"algorithm"`
}

// Seal encrypts plaintext under key, binding contextID as associated data.
// Every call draws a fresh nonce and salt.
func Seal(plaintext, key []byte, contextID string) (*Envelope, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if err := cryptoutil.ReadRandom(nonce); err != nil {
		return nil, err
	}
	salt := make([]byte, SaltSize)
	if err := cryptoutil.ReadRandom(salt); err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, plaintext, []byte(contextID))
	return &Envelope{
		Ciphertext: cryptoutil.B64(ct),
		IV:         cryptoutil.B64(nonce),
		Salt:       cryptoutil.B64(salt),
		Algorithm:  Algorithm,
	}, nil
}

// Open decrypts env under key with contextID as associated data. It fails
// closed: a wrong key, tampered ciphertext or mismatched context all yield
// ErrDecryptionFailed and no plaintext.
func Open(env *Envelope, key []byte, contextID string) ([]byte, error) {
	if env == nil || env.Algorithm != Algorithm {
		return nil, ErrBadEnvelope
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce, err := cryptoutil.B64Fixed(env.IV, NonceSize)
	if err != nil {
		return nil, ErrBadEnvelope
	}
	ct, err := cryptoutil.B64Decode(env.Ciphertext)
	if err != nil {
		return nil, ErrBadEnvelope
	}
	plaintext, err := aead.Open(nil, nonce, ct, []byte(contextID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrBadKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
