// Package dedup is the idempotency gate for inbound media ids.
package dedup

import (
	"sync"
	"time"

	"spendtrace/internal/metrics"
)

// Set records media ids that have been accepted for processing. Add is an
// atomic test-and-insert. With a zero TTL entries live for the process lifetime.
type Set struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]time.Time
}

type Option func(*Set)

// WithTTL lets CleanExpired drop ids older than ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Set) { s.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Set) { s.now = now }
}

func New(opts ...Option) *Set {
	s := &Set{now: time.Now, items: make(map[string]time.Time)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s *Set) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.items[id]; seen {
		return false
	}
	s.items[id] = s.now()
	metrics.DedupSize.Set(float64(len(s.items)))
	return true
}

// Forget removes id so a redelivery can be processed.
func (s *Set) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	metrics.DedupSize.Set(float64(len(s.items)))
}

// Contains reports whether id has been added.
func (s *Set) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// CleanExpired drops ids older than the TTL and returns how many went.
// It is a no-op without a TTL.
func (s *Set) CleanExpired() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, added := range s.items {
		if added.Before(cutoff) {
			delete(s.items, id)
			removed++
		}
	}
	metrics.DedupSize.Set(float64(len(s.items)))
	return removed
}
