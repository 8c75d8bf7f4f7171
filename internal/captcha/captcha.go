// Package captcha issues and validates single-use, short-lived challenges.
//
// The solution travels back to the client at issuance, so the challenge only
// adds friction and a rate-limiting hook; it is not a proof that a human
// solved anything. Kept this way for wire compatibility with existing
// clients.
package captcha

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/domain"
)

const DefaultTTL = 5 * time.Minute

// Record is a stored challenge.
type Record struct {
	Token     string
	Challenge string
	Solution  string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store persists challenges. Get/MarkUsed are called under the service
// validation lock, so implementations need no cross-call atomicity within a
// single instance.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, token string) (Record, error)
	MarkUsed(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) error
}

type Service struct {
	mu    sync.Mutex
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Issue creates a fresh arithmetic challenge.
func (s *Service) Issue(ctx context.Context) (Record, error) {
	var buf [4]byte
	if err := cryptoutil.ReadRandom(buf[:]); err != nil {
		return Record{}, err
	}
	a := int(binary.BigEndian.Uint16(buf[0:2]))%9 + 1
	b := int(binary.BigEndian.Uint16(buf[2:4]))%9 + 1

	now := s.now().UTC()
	rec := Record{
		Token:     uuid.NewString(),
		Challenge: fmt.Sprintf("%d + %d", a, b),
		Solution:  strconv.Itoa(a + b),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate checks token presence, single-use state, freshness and the answer
// (constant-time), then marks the token used. Every failure maps to the same
// generic error so callers cannot tell which check tripped.
func (s *Service) Validate(ctx context.Context, token, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Get(ctx, token)
	if err != nil {
		return domain.ErrCaptchaFailed
	}
	if rec.Used || s.now().After(rec.ExpiresAt) {
		return domain.ErrCaptchaFailed
	}
	if !cryptoutil.ConstantTimeEqualString(rec.Solution, answer) {
		return domain.ErrCaptchaFailed
	}
	if err := s.store.MarkUsed(ctx, token); err != nil {
		return domain.ErrCaptchaFailed
	}
	return nil
}

// Sweep removes expired challenges.
func (s *Service) Sweep(ctx context.Context) error {
	return s.store.DeleteExpired(ctx, s.now())
}

// MemoryStore is the single-instance Store.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Token] = rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[token]
	if !ok {
		return Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) MarkUsed(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[token]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Used = true
	m.recs[token] = rec
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, rec := range m.recs {
		if rec.ExpiresAt.Before(before) {
			delete(m.recs, token)
		}
	}
	return nil
}
