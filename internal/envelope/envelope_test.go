package envelope_test

import (
	"bytes"
	"testing"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/envelope"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := cryptoutil.RandomBytes(envelope.KeySize)
	if err != nil {
		t.Fatalf("random key: %v", err)
	}
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("the quick brown fox")

	env, err := envelope.Seal(plaintext, key, "conv-1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if env.Algorithm != envelope.Algorithm {
		t.Fatalf("expected algorithm %q, got %q", envelope.Algorithm, env.Algorithm)
	}

	got, err := envelope.Open(env, key, "conv-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("expected %q, got %q", plaintext, got)
	}
}

func TestOpenRejectsWrongContext(t *testing.T) {
	key := testKey(t)
	env, err := envelope.Seal([]byte("hello"), key, "conv-1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := envelope.Open(env, key, "conv-2"); err != envelope.ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	key := testKey(t)
	other := testKey(t)
	env, err := envelope.Seal([]byte("hello"), key, "conv-1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := envelope.Open(env, other, "conv-1"); err != envelope.ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key := testKey(t)
	env, err := envelope.Seal([]byte("hello"), key, "conv-1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	raw, err := cryptoutil.B64Decode(env.Ciphertext)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[0] ^= 0x01
	env.Ciphertext = cryptoutil.B64(raw)

	if _, err := envelope.Open(env, key, "conv-1"); err != envelope.ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed after bit flip, got %v", err)
	}
}

func TestOpenMalformedInputsFailClosed(t *testing.T) {
	key := testKey(t)

	// Empty plaintext still travels as a full envelope and round-trips.
	env, err := envelope.Seal(nil, key, "conv-1")
	if err != nil {
		t.Fatalf("seal empty: %v", err)
	}
	got, err := envelope.Open(env, key, "conv-1")
	if err != nil || len(got) != 0 {
		t.Fatalf("empty round trip: %v %v", got, err)
	}

	if _, err := envelope.Open(nil, key, "conv-1"); err != envelope.ErrBadEnvelope {
		t.Fatalf("nil envelope: expected ErrBadEnvelope, got %v", err)
	}

	wrongAlgo := *env
	wrongAlgo.Algorithm = "AES-CBC"
	if _, err := envelope.Open(&wrongAlgo, key, "conv-1"); err != envelope.ErrBadEnvelope {
		t.Fatalf("wrong algorithm tag: expected ErrBadEnvelope, got %v", err)
	}

	badIV := *env
	badIV.IV = "!!not base64!!"
	if _, err := envelope.Open(&badIV, key, "conv-1"); err != envelope.ErrBadEnvelope {
		t.Fatalf("garbage IV: expected ErrBadEnvelope, got %v", err)
	}

	// One byte is shorter than the GCM tag alone.
	tiny := *env
	tiny.Ciphertext = cryptoutil.B64([]byte{0x01})
	if _, err := envelope.Open(&tiny, key, "conv-1"); err != envelope.ErrDecryptionFailed {
		t.Fatalf("truncated ciphertext: expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSealRejectsBadKeySize(t *testing.T) {
	if _, err := envelope.Seal([]byte("x"), make([]byte, 16), "conv-1"); err != envelope.ErrBadKey {
		t.Fatalf("expected ErrBadKey for 16-byte key, got %v", err)
	}
}

func TestNoncesAreUnique(t *testing.T) {
	key := testKey(t)
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		env, err := envelope.Seal([]byte("payload"), key, "conv-1")
		if err != nil {
			t.Fatalf("seal %d: %v", i, err)
		}
		if seen[env.IV] {
			t.Fatalf("nonce repeated after %d envelopes", i)
		}
		seen[env.IV] = true
	}
}

func TestTextAndBinaryPayloads(t *testing.T) {
	key := testKey(t)

	p, err := envelope.SealText("hi there", key, "conv-9")
	if err != nil {
		t.Fatalf("seal text: %v", err)
	}
	text, err := envelope.OpenText(p, key, "conv-9")
	if err != nil {
		t.Fatalf("open text: %v", err)
	}
	if text != "hi there" {
		t.Fatalf("expected round-tripped text, got %q", text)
	}

	data := []byte{0x89, 0x50, 0x4e, 0x47}
	fp, err := envelope.SealFile(data, envelope.FileMeta{Filename: "a.png", ContentType: "image/png"}, key, "conv-9")
	if err != nil {
		t.Fatalf("seal file: %v", err)
	}
	if fp.File == nil || fp.File.Size != int64(len(data)) {
		t.Fatalf("expected sidecar size %d, got %+v", len(data), fp.File)
	}
	got, meta, err := envelope.OpenBinary(fp, key, "conv-9")
	if err != nil {
		t.Fatalf("open binary: %v", err)
	}
	if !bytes.Equal(got, data) || meta.Filename != "a.png" {
		t.Fatalf("unexpected binary round trip: %v %+v", got, meta)
	}

	// A text payload must not open as binary.
	if _, _, err := envelope.OpenBinary(p, key, "conv-9"); err == nil {
		t.Fatalf("expected type mismatch to fail")
	}
}
