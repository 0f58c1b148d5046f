// Package currency converts supplier order costs into the settlement
// currency. Conversion runs as a chain: a direct settlement-currency amount,
// then a cached historical exchange rate, then a pre-converted settlement
// field on the record, then a fixed fallback rate.
package currency

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Default cache policy.
const (
	DefaultCacheMaxEntries = 200
	DefaultCacheEvictCount = 50
	DefaultCacheMaxAge     = 30 * 24 * time.Hour
)

type cacheEntry struct {
	rate       decimal.Decimal
	insertedAt time.Time
}

// RateCache is a bounded cache of historical exchange rates keyed by
// date_from_to. Entries expire after maxAge; when the cache grows past
// maxEntries the oldest evictCount entries by insertion time are dropped.
// Safe for concurrent use.
type RateCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	maxEntries int
	evictCount int
	maxAge     time.Duration

	now func() time.Time
}

// NewRateCache creates a cache with the given bounds. Non-positive values
// fall back to the defaults.
func NewRateCache(maxEntries, evictCount int, maxAge time.Duration) *RateCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if evictCount <= 0 {
		evictCount = DefaultCacheEvictCount
	}
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	return &RateCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		evictCount: evictCount,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// CacheKey builds the canonical date_from_to cache key.
func CacheKey(date time.Time, from, to string) string {
	return fmt.Sprintf("%s_%s_%s", date.Format("2006-01-02"), from, to)
}

// Get returns the cached rate for the key. Expired entries are misses.
func (c *RateCache) Get(key string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return decimal.Zero, false
	}
	if c.now().Sub(entry.insertedAt) > c.maxAge {
		delete(c.entries, key)
		return decimal.Zero, false
	}
	return entry.rate, true
}

// Put stores a rate, evicting the oldest entries when the cache is full.
func (c *RateCache) Put(key string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{rate: rate, insertedAt: c.now()}

	if len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

// Len returns the number of cached entries.
func (c *RateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the evictCount oldest entries by insertion time.
// Caller holds the lock.
func (c *RateCache) evictOldest() {
	type keyed struct {
		key        string
		insertedAt time.Time
	}
	all := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, keyed{key: k, insertedAt: e.insertedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].insertedAt.Before(all[j].insertedAt)
	})

	n := c.evictCount
	if n > len(all) {
		n = len(all)
	}
	for _, e := range all[:n] {
		delete(c.entries, e.key)
	}
}
