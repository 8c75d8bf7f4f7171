package cryptoutil

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestB64RoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("a"),
		[]byte("hello world"),
		{0x00, 0xff, 0x10, 0x80},
	}
	for _, in := range cases {
		got, err := B64Decode(B64(in))
		if err != nil {
			t.Fatalf("decode %q: %v", in, err)
		}
		if !bytes.Equal(got, in) && len(in) != 0 {
			t.Fatalf("round trip mismatch: in=%v out=%v", in, got)
		}
	}
}

func TestB64DecodeRejectsGarbage(t *testing.T) {
	if _, err := B64Decode("!!not base64!!"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestB64Fixed(t *testing.T) {
	in := make([]byte, 12)
	for i := range in {
		in[i] = byte(i)
	}
	got, err := B64Fixed(B64(in), 12)
	if err != nil {
		t.Fatalf("fixed decode: %v", err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("expected %v, got %v", in, got)
	}
	if _, err := B64Fixed(B64(in), 16); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	a := []byte("secret-value")
	if !ConstantTimeEqual(a, []byte("secret-value")) {
		t.Fatalf("equal slices reported unequal")
	}
	if ConstantTimeEqual(a, []byte("secret-valuf")) {
		t.Fatalf("unequal slices reported equal")
	}
	if ConstantTimeEqual(a, []byte("short")) {
		t.Fatalf("different lengths reported equal")
	}
	if !ConstantTimeEqualString("12", "12") || ConstantTimeEqualString("12", "13") {
		t.Fatalf("string comparison misbehaved")
	}
}

// A short-circuiting comparison finishes a first-byte mismatch orders of
// magnitude faster than a last-byte mismatch over a 64 KiB input; the
// constant-time comparison must stay within scheduling noise of itself.
func TestConstantTimeEqualDurationIndependentOfMismatchPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("timing measurement")
	}
	const size = 64 * 1024
	base := bytes.Repeat([]byte{0x5a}, size)
	mismatchAt := func(pos int) []byte {
		b := append([]byte(nil), base...)
		b[pos] ^= 0xff
		return b
	}
	measure := func(other []byte) time.Duration {
		if ConstantTimeEqual(base, other) {
			t.Fatalf("mismatching inputs compared equal")
		}
		// Best of five batches; the minimum is the least noisy estimator.
		var best time.Duration
		for trial := 0; trial < 5; trial++ {
			start := time.Now()
			for i := 0; i < 1000; i++ {
				ConstantTimeEqual(base, other)
			}
			if d := time.Since(start); trial == 0 || d < best {
				best = d
			}
		}
		return best
	}

	early := measure(mismatchAt(0))
	late := measure(mismatchAt(size - 1))
	if late > 3*early || early > 3*late {
		t.Fatalf("comparison time depends on mismatch position: first-byte %v, last-byte %v", early, late)
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint([]byte("device"))
	if len(fp) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(fp))
	}
	if fp != strings.ToLower(fp) {
		t.Fatalf("expected lowercase hex")
	}
	if fp == Fingerprint([]byte("other")) {
		t.Fatalf("distinct inputs collided")
	}
}

func TestDeterministicRandomRestore(t *testing.T) {
	restore := UseDeterministicRandom(bytes.NewReader(bytes.Repeat([]byte{0xAA}, 64)))
	buf, err := RandomBytes(4)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if !bytes.Equal(buf, []byte{0xAA, 0xAA, 0xAA, 0xAA}) {
		t.Fatalf("deterministic source not used: %v", buf)
	}
	restore()

	// Exhausted-source failures surface as ErrEntropyUnavailable.
	restore = UseDeterministicRandom(bytes.NewReader(nil))
	if _, err := RandomBytes(1); err == nil {
		t.Fatalf("expected entropy error from empty source")
	}
	restore()
}
