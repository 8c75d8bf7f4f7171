package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func FuzzOpenKeystore(f *testing.F) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		f.Fatalf("generate key: %v", err)
	}
	sealed, err := sealKeystore([]byte("pw"), key, time.Now().UTC())
	if err != nil {
		f.Fatalf("seal: %v", err)
	}
	f.Add(sealed, []byte("pw"))
	f.Add(sealed, []byte("wrong"))
	f.Add([]byte("{}"), []byte(""))
	f.Add([]byte(`{"v":1,"salt":"AAAA","t":3,"m":65536,"p":1,"cipher":"AAAA"}`), []byte("pw"))
	f.Add([]byte(`{"v":1,"salt":"AAAA","t":0,"m":4294967295,"p":0,"cipher":""}`), []byte("pw"))
	f.Fuzz(func(t *testing.T, data, passphrase []byte) {
		got, _, err := openKeystore(passphrase, data)
		if err != nil {
			if got != nil {
				t.Fatalf("key returned alongside error")
			}
			return
		}
		if got == nil {
			t.Fatalf("nil key without error")
		}
		if err := got.Validate(); err != nil {
			t.Fatalf("opened keystore holds an invalid key: %v", err)
		}
	})
}

func FuzzParsePEM(f *testing.F) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		f.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		f.Fatalf("marshal: %v", err)
	}
	f.Add(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	f.Add([]byte("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n"))
	f.Add([]byte("not pem at all"))
	f.Fuzz(func(t *testing.T, data []byte) {
		parsed, ok := parsePEM(data)
		if ok && parsed == nil {
			t.Fatalf("parse reported ok with nil key")
		}
		// Arbitrary key material must fail verification closed, never panic
		// and never validate a bogus signature.
		if Verify([]byte("message"), []byte("signature"), data) {
			t.Fatalf("bogus signature verified")
		}
	})
}
