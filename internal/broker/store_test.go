package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(time.Hour, nil)
	t.Cleanup(s.Close)
	return s
}

func TestMemoryStorePutGet(t *testing.T) {
	s := newTestStore(t)

	s.Put("a", "value", time.Minute)

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := newTestStore(t)

	s.Put("a", "value", -time.Second)

	_, ok := s.Get("a")
	assert.False(t, ok, "expired entry must not be readable")
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreLenCountsOnlyLiveEntries(t *testing.T) {
	s := newTestStore(t)

	s.Put("live", "value", time.Minute)
	s.Put("dead", "value", -time.Second)

	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreTakeOnce(t *testing.T) {
	s := newTestStore(t)

	s.Put("a", "value", time.Minute)

	v, ok := s.Take("a")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = s.Take("a")
	assert.False(t, ok, "second take must miss")
	_, ok = s.Get("a")
	assert.False(t, ok, "take must remove the entry")
}

func TestMemoryStoreTakeConcurrent(t *testing.T) {
	s := newTestStore(t)
	s.Put("a", "value", time.Minute)

	const readers = 16
	hits := make(chan bool, readers)
	for i := 0; i < readers; i++ {
		go func() {
			_, ok := s.Take("a")
			hits <- ok
		}()
	}

	won := 0
	for i := 0; i < readers; i++ {
		if <-hits {
			won++
		}
	}
	assert.Equal(t, 1, won, "exactly one reader wins the take")
}

func TestMemoryStoreDelete(t *testing.T) {
	s := newTestStore(t)

	s.Put("a", "value", time.Minute)
	s.Delete("a")

	_, ok := s.Get("a")
	assert.False(t, ok)

	// Deleting a missing key is a no-op.
	s.Delete("missing")
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.Put("a", "old", time.Minute)
	s.Put("a", "new", time.Minute)

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreSweep(t *testing.T) {
	s := NewMemoryStore(10*time.Millisecond, nil)
	defer s.Close()

	s.Put("stale", "value", time.Millisecond)
	s.Put("fresh", "value", time.Hour)

	assert.Eventually(t, func() bool {
		return s.Len() == 1
	}, time.Second, 10*time.Millisecond, "sweeper should drop the expired entry")

	_, ok := s.Get("fresh")
	assert.True(t, ok)
}

func TestMemoryStoreCloseIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Hour, nil)
	s.Close()
	s.Close()
}
