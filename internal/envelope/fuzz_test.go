package envelope_test

import (
	"bytes"
	"errors"
	"testing"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/envelope"
)

func FuzzOpen(f *testing.F) {
	f.Add([]byte("hello"), "", "", "")
	f.Add([]byte{}, "AA==", "!!not base64!!", "AES-GCM")
	f.Add([]byte{0x00, 0xff}, "////", "AAAAAAAAAAAAAAAA", "none")
	f.Fuzz(func(t *testing.T, plaintext []byte, ciphertext, iv, algorithm string) {
		key := bytes.Repeat([]byte{0x42}, envelope.KeySize)

		env, err := envelope.Seal(plaintext, key, "conv-f")
		if err != nil {
			t.Fatalf("seal: %v", err)
		}
		got, err := envelope.Open(env, key, "conv-f")
		if err != nil {
			t.Fatalf("open sealed envelope: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round trip mismatch: %q != %q", got, plaintext)
		}

		forged := &envelope.Envelope{
			Ciphertext: ciphertext,
			IV:         iv,
			Salt:       env.Salt,
			Algorithm:  algorithm,
		}
		pt, err := envelope.Open(forged, key, "conv-f")
		if err == nil {
			if ciphertext != env.Ciphertext || iv != env.IV {
				t.Fatalf("forged envelope opened: %q", pt)
			}
		} else if !errors.Is(err, envelope.ErrBadEnvelope) && !errors.Is(err, envelope.ErrDecryptionFailed) {
			t.Fatalf("unexpected error class: %v", err)
		}

		// Flipping any ciphertext bit must yield the decryption sentinel, never
		// plaintext.
		raw, err := cryptoutil.B64Decode(env.Ciphertext)
		if err != nil {
			t.Fatalf("decode own ciphertext: %v", err)
		}
		raw[len(iv)%len(raw)] ^= 0x01
		env.Ciphertext = cryptoutil.B64(raw)
		if _, err := envelope.Open(env, key, "conv-f"); !errors.Is(err, envelope.ErrDecryptionFailed) {
			t.Fatalf("tampered ciphertext: expected ErrDecryptionFailed, got %v", err)
		}
	})
}
