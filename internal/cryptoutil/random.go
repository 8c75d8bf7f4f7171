package cryptoutil

import (
	"crypto/rand"
	"errors"
	"io"
	"sync"
)

// ErrEntropyUnavailable is returned when the platform randomness source fails.
var ErrEntropyUnavailable = errors.New("cryptoutil: secure randomness unavailable")

var (
	randMu        sync.RWMutex
	randomnessSrc io.Reader = randReader{}
)

// randReader wraps crypto/rand.Reader but keeps the type unexported so tests can
// substitute deterministic sources.
type randReader struct{}

func (randReader) Read(p []byte) (int, error) {
	return rand.Read(p)
}

// UseDeterministicRandom swaps the randomness source for deterministic testing
// and returns a restore function that must be called when the test completes.
func UseDeterministicRandom(r io.Reader) func() {
	randMu.Lock()
	prev := randomnessSrc
	randomnessSrc = r
	randMu.Unlock()
	return func() {
		randMu.Lock()
		randomnessSrc = prev
		randMu.Unlock()
	}
}

// Reader exposes the active randomness source for primitives that consume an
// io.Reader directly (RSA key generation, PSS salts).
func Reader() io.Reader {
	randMu.RLock()
	defer randMu.RUnlock()
	return randomnessSrc
}

// ReadRandom fills b from the active randomness source.
func ReadRandom(b []byte) error {
	randMu.RLock()
	src := randomnessSrc
	randMu.RUnlock()
	if _, err := io.ReadFull(src, b); err != nil {
		return errors.Join(ErrEntropyUnavailable, err)
	}
	return nil
}

// RandomBytes returns n fresh random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := ReadRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

var _ io.Reader = randReader{}
