package cache

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value      []byte
	expiration int64
}

func (i item) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// MemoryStore is a thread-safe in-memory Store
type MemoryStore struct {
	items    map[string]item
	mu       sync.RWMutex
	maxItems int
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a MemoryStore holding at most maxItems entries.
// A positive cleanupInterval starts a background sweeper stopped by Close.
func NewMemoryStore(maxItems int, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		items:    make(map[string]item),
		maxItems: maxItems,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.startCleanupTimer(cleanupInterval)
	}

	return s
}

// Get retrieves an entry
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, found := s.items[key]
	if !found || it.expired(s.now().UnixNano()) {
		return nil, ErrMiss
	}

	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

// Set stores an entry. A non-positive ttl never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = s.now().Add(ttl).UnixNano()
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists && s.maxItems > 0 && len(s.items) >= s.maxItems {
		s.evictOldest()
	}

	s.items[key] = item{value: stored, expiration: exp}
	return nil
}

// Delete removes an entry
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Count returns the number of entries, expired ones included
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Close stops the background sweeper
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) startCleanupTimer(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) deleteExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixNano()
	for k, v := range s.items {
		if v.expired(now) {
			delete(s.items, k)
		}
	}
}

// evictOldest drops the entry closest to expiry, preferring expiring
// entries over permanent ones
func (s *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestTime int64
	first := true

	for k, v := range s.items {
		if first || (v.expiration > 0 && (oldestTime == 0 || v.expiration < oldestTime)) {
			oldestKey = k
			oldestTime = v.expiration
			first = false
		}
	}

	if !first {
		delete(s.items, oldestKey)
	}
}
