package reqsig

import (
	"context"
	"sync"
	"time"
)

// ReplayStore records request nonces for the duration of the freshness window.
// Register must be atomic per nonce: it returns false when the nonce was
// already present. Implementations backing multiple server instances must use
// a store with atomic insert-if-absent semantics.
type ReplayStore interface {
	Register(ctx context.Context, nonce string, expiresAt time.Time) (fresh bool, err error)
	Sweep(ctx context.Context, now time.Time) error
}

// MemoryReplayStore is the single-instance implementation. State is not
// durable across restarts.
type MemoryReplayStore struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	limit int
}

func NewMemoryReplayStore() *MemoryReplayStore {
	return &MemoryReplayStore{seen: make(map[string]time.Time), limit: 1 << 20}
}

func (s *MemoryReplayStore) Register(_ context.Context, nonce string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if exp, ok := s.seen[nonce]; ok && now.Before(exp) {
		return false, nil
	}
	if len(s.seen) >= s.limit {
		s.pruneLocked(now)
	}
	s.seen[nonce] = expiresAt
	return true, nil
}

func (s *MemoryReplayStore) Sweep(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	return nil
}

func (s *MemoryReplayStore) pruneLocked(now time.Time) {
	for nonce, exp := range s.seen {
		if !now.Before(exp) {
			delete(s.seen, nonce)
		}
	}
}
