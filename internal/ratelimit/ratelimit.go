// Package ratelimit enforces the per-client sliding window: 100 requests per
// 60 seconds per client key by default. The limiter is an interface so
// multi-instance deployments can plug in a distributed store with atomic
// increment/TTL; the in-memory implementation is correct for a single
// instance only and is not durable across restarts.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"zeroforums/internal/domain"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute
)

type Limiter interface {
	// Allow records a request for key and returns
	// SecurityError(RATE_LIMIT_EXCEEDED) once the window is full.
	Allow(ctx context.Context, key string) error
}

// SlidingWindow keeps per-key request timestamps. Read-modify-write per key is
// serialized under one mutex so concurrent requests from the same client
// cannot lose updates.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *SlidingWindow) Allow(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.limit {
		l.hits[key] = kept
		return &domain.SecurityError{Kind: domain.RateLimitExceeded}
	}
	l.hits[key] = append(kept, now)
	return nil
}

// Sweep drops keys whose entries have all aged out. Allow prunes lazily per
// key; the sweep reclaims memory for clients that went quiet.
func (l *SlidingWindow) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.window)
	for key, times := range l.hits {
		live := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = live
	}
}

// StartSweeper runs Sweep every interval until ctx is done.
func (l *SlidingWindow) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}
