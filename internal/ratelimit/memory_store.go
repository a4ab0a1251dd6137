// internal/ratelimit/memory_store.go
package ratelimit

import (
	"context"
	"sync"
	"time"

	"devpulse-search/internal/common/config"
)

// MemoryStore is the single-process sliding window used when Redis is
// not configured. One mutex covers both windows, which keeps the
// check-and-record atomic.
type MemoryStore struct {
	mu          sync.Mutex
	perIdentity int
	global      int
	window      time.Duration
	byIdentity  map[string][]time.Time
	all         []time.Time
}

func NewMemoryStore(cfg config.QuotaConfig) *MemoryStore {
	return &MemoryStore{
		perIdentity: cfg.PerIdentityDaily,
		global:      cfg.GlobalDaily,
		window:      WindowFromConfig(cfg),
		byIdentity:  make(map[string][]time.Time),
	}
}

func (s *MemoryStore) Reserve(_ context.Context, identity string, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.window)
	s.all = prune(s.all, cutoff)
	s.byIdentity[identity] = prune(s.byIdentity[identity], cutoff)

	if len(s.all) >= s.global {
		return Decision{Allowed: false, Scope: "global", ResetAt: s.all[0].Add(s.window)}, nil
	}

	events := s.byIdentity[identity]
	if len(events) >= s.perIdentity {
		return Decision{Allowed: false, Scope: "identity", ResetAt: events[0].Add(s.window)}, nil
	}

	s.all = append(s.all, now)
	s.byIdentity[identity] = append(events, now)

	return Decision{
		Allowed:   true,
		Remaining: s.perIdentity - len(events) - 1,
		ResetAt:   now.Add(s.window),
	}, nil
}

// prune drops events at or before cutoff; slices stay ordered oldest first.
func prune(events []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(events) && !events[idx].After(cutoff) {
		idx++
	}
	return events[idx:]
}
