package sources

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// DefaultCacheTTL is how long a fetched result set stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// cacheNamespace scopes cache fingerprints so they cannot collide with
// canonical paper IDs.
var cacheNamespace = uuid.MustParse("b3e51c0a-7d2f-5e48-8c19-f06a34d7b215")

// Clock abstracts wall-clock time so cache TTL expiry is deterministically
// testable with a fake clock.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// CacheKey fingerprints one source query: (source, query, limit, fromYear).
// The fingerprint is a namespace-scoped content hash, stable across runs.
func CacheKey(source domain.SourceType, query string, limit, fromYear int) string {
	payload := fmt.Sprintf("%s|%s|%d|%d", source, query, limit, fromYear)
	return uuid.NewSHA1(cacheNamespace, []byte(payload)).String()
}

type cacheEntry struct {
	results   []domain.RawResult
	expiresAt time.Time
}

// ResultCache memoizes raw result sets for a short TTL. Only successful
// fetches are stored — failures are never negatively cached, so a paper that
// appears after a transient outage is not masked for the TTL window.
//
// The cache is safe for concurrent use. A stampede (two concurrent callers
// missing the same key) results in at most one redundant fetch, which is
// acceptable by design of the callers.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   Clock
}

// NewResultCache creates a cache with the given TTL. A zero ttl uses
// DefaultCacheTTL; a nil clock uses the real clock.
func NewResultCache(ttl time.Duration, clock Clock) *ResultCache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &ResultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached results for key, or (nil, false) on a miss or an
// expired entry. Expired entries are removed on access.
func (c *ResultCache) Get(key string) ([]domain.RawResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.clock.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry meanwhile.
		if current, stillThere := c.entries[key]; stillThere && c.clock.Now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	// Copy so callers cannot mutate the cached slice.
	out := make([]domain.RawResult, len(entry.results))
	copy(out, entry.results)
	return out, true
}

// Put stores a successful result set under key with the cache TTL.
func (c *ResultCache) Put(key string, results []domain.RawResult) {
	stored := make([]domain.RawResult, len(results))
	copy(stored, results)

	c.mu.Lock()
	c.entries[key] = cacheEntry{
		results:   stored,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been evicted.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge removes all expired entries. Called opportunistically by long-running
// owners; correctness does not depend on it.
func (c *ResultCache) Purge() {
	now := c.clock.Now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}
