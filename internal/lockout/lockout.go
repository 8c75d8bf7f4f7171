// Package lockout tracks login attempts per client key and escalates lockout
// duration geometrically once failures pass the threshold. Like the rate
// limiter, the tracker is an interface so deployments spanning multiple
// instances can externalize the state; the in-memory tracker is per-process.
package lockout

import (
	"context"
	"sync"
	"time"

	"zeroforums/internal/domain"
)

type Policy struct {
	Window    time.Duration // attempts older than this are forgotten
	Threshold int           // consecutive failures before lockout starts
	Base      time.Duration // lockout at exactly Threshold failures
	Factor    int           // duration multiplier per extra failure
}

func DefaultPolicy() Policy {
	return Policy{
		Window:    24 * time.Hour,
		Threshold: 3,
		Base:      24 * time.Hour,
		Factor:    3,
	}
}

type Tracker interface {
	// Check returns an AuthenticationError carrying LockedUntil while the
	// client key is locked out.
	Check(ctx context.Context, key string) error
	Record(ctx context.Context, key string, success bool) error
	Clear(ctx context.Context, key string) error
}

type attempt struct {
	at      time.Time
	success bool
}

// Memory is the single-instance tracker.
type Memory struct {
	mu       sync.Mutex
	policy   Policy
	attempts map[string][]attempt
	now      func() time.Time
}

func NewMemory(policy Policy) *Memory {
	return &Memory{
		policy:   policy,
		attempts: make(map[string][]attempt),
		now:      time.Now,
	}
}

func (m *Memory) Check(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.pruneLocked(key, now)
	until := m.lockedUntilLocked(key)
	if now.Before(until) {
		return &domain.AuthenticationError{
			Reason:      "too many failed attempts, try again later",
			LockedUntil: until,
		}
	}
	return nil
}

func (m *Memory) Record(_ context.Context, key string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.pruneLocked(key, now)
	m.attempts[key] = append(m.attempts[key], attempt{at: now, success: success})
	return nil
}

// Seed replays a historical attempt with its original timestamp, rebuilding
// tracker state from the durable audit table after a restart. Attempts must
// arrive in chronological order.
func (m *Memory) Seed(key string, at time.Time, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[key] = append(m.attempts[key], attempt{at: at, success: success})
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, key)
	return nil
}

// Sweep forgets client keys whose attempts all fell outside the window.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key := range m.attempts {
		m.pruneLocked(key, now)
		if len(m.attempts[key]) == 0 {
			delete(m.attempts, key)
		}
	}
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *Memory) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

func (m *Memory) pruneLocked(key string, now time.Time) {
	cutoff := now.Add(-m.policy.Window)
	kept := m.attempts[key][:0]
	for _, a := range m.attempts[key] {
		if a.at.After(cutoff) {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		delete(m.attempts, key)
		return
	}
	m.attempts[key] = kept
}

// lockedUntilLocked computes the lockout expiry from consecutive failures
// since the last success: base × factor^(failures − threshold), anchored at
// the most recent failure.
func (m *Memory) lockedUntilLocked(key string) time.Time {
	var failures int
	var lastFailure time.Time
	for _, a := range m.attempts[key] {
		if a.success {
			failures = 0
			continue
		}
		failures++
		lastFailure = a.at
	}
	if failures < m.policy.Threshold {
		return time.Time{}
	}
	duration := m.policy.Base
	for i := m.policy.Threshold; i < failures; i++ {
		duration *= time.Duration(m.policy.Factor)
	}
	return lastFailure.Add(duration)
}
