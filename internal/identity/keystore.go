package identity

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"zeroforums/internal/cryptoutil"
)

// The current supported version of the sealed keystore blob on disk.
const keystoreFormatVersion = 1

var errKeystoreAuth = errors.New("identity: wrong passphrase or corrupted keystore")

// blob is the on-disk JSON structure holding the sealed key and KDF parameters.
type blob struct {
	V       int    `json:"v"`
	Salt    []byte `json:"salt"`
	Time    uint32 `json:"t"`
	Memory  uint32 `json:"m"`
	Threads uint8  `json:"p"`
	Cipher  []byte `json:"cipher"`
}

// payload is what gets sealed: the PKCS#8 key plus its creation timestamp.
type payload struct {
	KeyDER    []byte    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
}

func kdfParamsDefault() (t, m uint32, p uint8) { return 3, 64 * 1024, 1 }

func sealKeystore(passphrase []byte, key *rsa.PrivateKey, createdAt time.Time) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload{KeyDER: der, CreatedAt: createdAt})
	if err != nil {
		return nil, err
	}

	salt, err := cryptoutil.RandomBytes(16)
	if err != nil {
		return nil, err
	}
	t, m, p := kdfParamsDefault()
	sealKey := argon2.IDKey(passphrase, salt, t, m, p, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(sealKey)
	if err != nil {
		return nil, err
	}
	nonce, err := cryptoutil.RandomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	ct := aead.Seal(nonce, nonce, raw, salt)

	return json.Marshal(blob{
		V:       keystoreFormatVersion,
		Salt:    salt,
		Time:    t,
		Memory:  m,
		Threads: p,
		Cipher:  ct,
	})
}

func openKeystore(passphrase, data []byte) (*rsa.PrivateKey, time.Time, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, time.Time{}, err
	}
	if b.V > keystoreFormatVersion {
		return nil, time.Time{}, fmt.Errorf("identity: unsupported keystore version %d", b.V)
	}
	// The KDF parameters come from the blob itself; a forged blob must not be
	// able to demand arbitrary argon2 work or memory.
	if b.Time == 0 || b.Time > 16 || b.Memory < 8*1024 || b.Memory > 1<<20 || b.Threads == 0 {
		return nil, time.Time{}, errKeystoreAuth
	}
	if len(b.Cipher) < chacha20poly1305.NonceSizeX {
		return nil, time.Time{}, errKeystoreAuth
	}

	sealKey := argon2.IDKey(passphrase, b.Salt, b.Time, b.Memory, b.Threads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(sealKey)
	if err != nil {
		return nil, time.Time{}, err
	}
	nonce, ct := b.Cipher[:chacha20poly1305.NonceSizeX], b.Cipher[chacha20poly1305.NonceSizeX:]
	raw, err := aead.Open(nil, nonce, ct, b.Salt)
	if err != nil {
		return nil, time.Time{}, errKeystoreAuth
	}

	var pl payload
	if err := json.Unmarshal(raw, &pl); err != nil {
		return nil, time.Time{}, err
	}
	parsed, err := x509.ParsePKCS8PrivateKey(pl.KeyDER)
	if err != nil {
		return nil, time.Time{}, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, time.Time{}, errors.New("identity: keystore holds a non-RSA key")
	}
	return key, pl.CreatedAt, nil
}
