package sources

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// fakeClock is a controllable Clock for deterministic TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := CacheKey(domain.SourceTypeOpenAlex, "deep learning", 25, 2015)
		b := CacheKey(domain.SourceTypeOpenAlex, "deep learning", 25, 2015)
		assert.Equal(t, a, b)
	})

	t.Run("varies by every component", func(t *testing.T) {
		base := CacheKey(domain.SourceTypeOpenAlex, "deep learning", 25, 2015)
		assert.NotEqual(t, base, CacheKey(domain.SourceTypeCrossref, "deep learning", 25, 2015))
		assert.NotEqual(t, base, CacheKey(domain.SourceTypeOpenAlex, "shallow learning", 25, 2015))
		assert.NotEqual(t, base, CacheKey(domain.SourceTypeOpenAlex, "deep learning", 50, 2015))
		assert.NotEqual(t, base, CacheKey(domain.SourceTypeOpenAlex, "deep learning", 25, 0))
	})
}

func TestResultCache_GetPut(t *testing.T) {
	clock := newFakeClock()
	cache := NewResultCache(5*time.Minute, clock)

	key := CacheKey(domain.SourceTypeArXiv, "q", 10, 0)
	results := []domain.RawResult{{Title: "Paper", Source: domain.SourceTypeArXiv}}

	_, ok := cache.Get(key)
	assert.False(t, ok, "empty cache must miss")

	cache.Put(key, results)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, results, got)
}

func TestResultCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewResultCache(5*time.Minute, clock)

	key := CacheKey(domain.SourceTypeCORE, "q", 10, 0)
	cache.Put(key, []domain.RawResult{{Title: "Paper"}})

	clock.Advance(4 * time.Minute)
	_, ok := cache.Get(key)
	assert.True(t, ok, "entry must still be fresh before the TTL")

	clock.Advance(2 * time.Minute)
	_, ok = cache.Get(key)
	assert.False(t, ok, "entry must expire after the TTL")
	assert.Equal(t, 0, cache.Len(), "expired entry is evicted on access")
}

func TestResultCache_CallerCannotMutateCachedResults(t *testing.T) {
	cache := NewResultCache(time.Minute, newFakeClock())
	key := "k"
	cache.Put(key, []domain.RawResult{{Title: "Original"}})

	got, ok := cache.Get(key)
	require.True(t, ok)
	got[0].Title = "Mutated"

	again, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "Original", again[0].Title)
}

func TestResultCache_Purge(t *testing.T) {
	clock := newFakeClock()
	cache := NewResultCache(time.Minute, clock)

	cache.Put("fresh-later", []domain.RawResult{{Title: "A"}})
	clock.Advance(2 * time.Minute)
	cache.Put("fresh", []domain.RawResult{{Title: "B"}})

	cache.Purge()
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get("fresh")
	assert.True(t, ok)
}

func TestResultCache_ConcurrentAccess(t *testing.T) {
	cache := NewResultCache(time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := CacheKey(domain.SourceTypeOpenAlex, "q", n%4, 0)
			for j := 0; j < 100; j++ {
				cache.Put(key, []domain.RawResult{{Title: "P"}})
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 4)
}
