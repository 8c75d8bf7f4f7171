package identity

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"sync"
	"time"

	"zeroforums/internal/cryptoutil"
)

const keyBits = 4096

var (
	ErrNotInitialized    = errors.New("identity: manager not initialized")
	ErrKeyUnavailable    = errors.New("identity: private key unavailable")
	ErrCryptoUnavailable = errors.New("identity: crypto primitives unavailable")
)

// Manager owns the device identity keypair: a single RSA-4096 key used for
// PSS signing and OAEP encryption, persisted in a sealed local keystore. The
// private key never leaves this process; only PublicKeyPEM crosses the wire.
type Manager struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
	key        *rsa.PrivateKey
	createdAt  time.Time
}

// NewManager prepares a manager backed by the keystore file at path. The
// passphrase seals the keystore blob on disk; an empty passphrase is allowed
// for device-local storage but offers no at-rest protection.
func NewManager(path string, passphrase []byte) *Manager {
	return &Manager{path: path, passphrase: append([]byte(nil), passphrase...)}
}

// Initialize loads the persisted keypair, generating and persisting a fresh
// one when none exists.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key != nil {
		return nil
	}
	if blob, err := os.ReadFile(m.path); err == nil {
		key, createdAt, err := openKeystore(m.passphrase, blob)
		if err != nil {
			return err
		}
		m.key = key
		m.createdAt = createdAt
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	key, err := rsa.GenerateKey(cryptoutil.Reader(), keyBits)
	if err != nil {
		return errors.Join(ErrCryptoUnavailable, err)
	}
	createdAt := time.Now().UTC()
	blob, err := sealKeystore(m.passphrase, key, createdAt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, blob, 0o600); err != nil {
		return err
	}
	m.key = key
	m.createdAt = createdAt
	return nil
}

// PublicKeyPEM exports the public half as a PEM-encoded PKIX block.
func (m *Manager) PublicKeyPEM() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key == nil {
		return nil, ErrNotInitialized
	}
	der, err := x509.MarshalPKIXPublicKey(&m.key.PublicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// CreatedAt reports when the keypair was generated.
func (m *Manager) CreatedAt() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key == nil {
		return time.Time{}, ErrNotInitialized
	}
	return m.createdAt, nil
}

// Sign produces an RSA-PSS signature over data. PSS salts are randomized, so
// two signatures over identical data differ.
func (m *Manager) Sign(data []byte) ([]byte, error) {
	m.mu.Lock()
	key := m.key
	m.mu.Unlock()
	if key == nil {
		return nil, ErrKeyUnavailable
	}
	digest := sha256.Sum256(data)
	return rsa.SignPSS(cryptoutil.Reader(), key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
}

// Verify checks an RSA-PSS signature against pub, which may be an imported
// *rsa.PublicKey or a PEM-encoded public key. Malformed input never panics or
// errors out; it verifies as false.
func Verify(data, sig []byte, pub any) bool {
	key, ok := importPublicKey(pub)
	if !ok {
		return false
	}
	digest := sha256.Sum256(data)
	err := rsa.VerifyPSS(key, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	return err == nil
}

// Encrypt seals small payloads (key material, not bulk data) to the holder of
// the corresponding private key using RSA-OAEP-SHA256.
func Encrypt(plaintext []byte, pub any) ([]byte, error) {
	key, ok := importPublicKey(pub)
	if !ok {
		return nil, errors.New("identity: invalid public key")
	}
	return rsa.EncryptOAEP(sha256.New(), cryptoutil.Reader(), key, plaintext, nil)
}

// Decrypt opens an RSA-OAEP-SHA256 ciphertext with the device private key.
func (m *Manager) Decrypt(ciphertext []byte) ([]byte, error) {
	m.mu.Lock()
	key := m.key
	m.mu.Unlock()
	if key == nil {
		return nil, ErrKeyUnavailable
	}
	return rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
}

// Clear wipes the in-memory key handle and deletes the persisted keystore.
// Irreversible.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = nil
	m.createdAt = time.Time{}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func importPublicKey(pub any) (*rsa.PublicKey, bool) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k, true
	case []byte:
		return parsePEM(k)
	case string:
		return parsePEM([]byte(k))
	default:
		return nil, false
	}
}

func parsePEM(data []byte) (*rsa.PublicKey, bool) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, false
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, false
	}
	key, ok := parsed.(*rsa.PublicKey)
	return key, ok
}
