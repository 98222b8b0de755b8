package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
}

const defaultMaxEntries = 5000

// Store is an in-process key-value store with per-entry TTL. Entries older
// than staleAfter are treated as missing even without an explicit TTL.
type Store struct {
	mu         sync.Mutex
	entries    map[string]entry
	staleAfter time.Duration
	maxEntries int
	now        func() time.Time
}

func New(staleAfter time.Duration) *Store {
	return &Store{
		entries:    make(map[string]entry),
		staleAfter: staleAfter,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
}

func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.expired(e) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value; ttl <= 0 keeps it until it goes stale.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := entry{value: value, storedAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e
	if len(s.entries) > s.maxEntries {
		s.evictExpiredLocked()
		if len(s.entries) > s.maxEntries {
			s.entries = map[string]entry{key: e}
		}
	}
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *Store) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Keys returns the live keys under prefix.
func (s *Store) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0)
	for key, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) expired(e entry) bool {
	now := s.now()
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		return true
	}
	if s.staleAfter > 0 && now.Sub(e.storedAt) > s.staleAfter {
		return true
	}
	return false
}

func (s *Store) evictExpiredLocked() {
	for key, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, key)
		}
	}
}
