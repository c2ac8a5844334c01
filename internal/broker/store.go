package broker

import (
	"log/slog"
	"sync"
	"time"
)

// Store is a TTL-bound key-value store for sessions and token bundles.
//
// Any TTL-capable backend can satisfy this; the in-memory implementation
// below is the default. Take exists so a done session's token bundle can be
// consumed atomically: the first successful Take wins and every later call
// misses, which is what gives poll its at-most-once delivery.
type Store interface {
	Put(key string, value any, ttl time.Duration)
	Get(key string) (any, bool)
	Take(key string) (any, bool)
	Delete(key string)
}

type entry struct {
	value     any
	expiresAt int64
}

// MemoryStore is an in-memory Store with a background sweep goroutine.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	logger  *slog.Logger
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a MemoryStore sweeping expired entries at the given
// interval.
func NewMemoryStore(sweepInterval time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MemoryStore{
		entries: make(map[string]entry),
		logger:  logger,
		done:    make(chan struct{}),
	}

	go s.sweep(sweepInterval)

	return s
}

// Put stores value under key for ttl.
func (s *MemoryStore) Put(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl).UnixNano(),
	}
}

// Get returns the live value for key, if any. Expired entries count as
// missing even before the sweeper removes them.
func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Now().UnixNano() > e.expiresAt {
		return nil, false
	}
	return e.value, true
}

// Take atomically returns and deletes the live value for key. Exactly one of
// any concurrent Take calls for the same key succeeds.
func (s *MemoryStore) Take(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	if time.Now().UnixNano() > e.expiresAt {
		return nil, false
	}
	return e.value, true
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Len returns the number of live entries. Expired entries the sweeper has
// not removed yet are not counted, so the metrics gauge reflects sessions
// that can still be served.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UnixNano()
	live := 0
	for _, e := range s.entries {
		if now <= e.expiresAt {
			live++
		}
	}
	return live
}

// Close stops the sweep goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *MemoryStore) sweepExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	deleted := 0
	for key, e := range s.entries {
		if now > e.expiresAt {
			delete(s.entries, key)
			deleted++
		}
	}

	if deleted > 0 {
		s.logger.Debug("swept expired broker entries", "deleted", deleted)
	}
}
