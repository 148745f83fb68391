// Package bridge implements the conversion and settlement bridge: venue
// analysis across fee tiers, deterministic route selection, slippage-bounded
// estimates, and the all-or-nothing convert-then-forward operation.
package bridge

import (
	"sync"
	"time"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// MemoryVenueCache is a process-wide TTL cache of venue metadata backed by a
// sync.Map. Writes are last-writer-wins; a duplicate live lookup during a
// population race is cheaper than serializing readers behind a lock.
type MemoryVenueCache struct {
	ttl     time.Duration
	entries sync.Map // domain.VenueKey -> cacheEntry

	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry struct {
	info domain.VenueInfo
}

// NewMemoryVenueCache creates a cache whose entries expire logically after
// ttl. Expired entries are still returned as hints, flagged IsExpired.
func NewMemoryVenueCache(ttl time.Duration) *MemoryVenueCache {
	return &MemoryVenueCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the stored entry for key. An absent key is reported identically
// to an infinitely expired one. Get never triggers a refresh.
func (c *MemoryVenueCache) Get(key domain.VenueKey) domain.CacheLookup {
	v, ok := c.entries.Load(key)
	if !ok {
		return domain.CacheLookup{
			AgeSeconds: domain.AgeUnknown,
			IsExpired:  true,
		}
	}

	entry := v.(cacheEntry)
	age := c.now().Sub(entry.info.QueriedAt)
	if age < 0 {
		age = 0
	}

	return domain.CacheLookup{
		Info:       entry.info,
		AgeSeconds: int64(age / time.Second),
		IsExpired:  age > c.ttl,
		Found:      true,
	}
}

// Put overwrites the entry for key unconditionally.
func (c *MemoryVenueCache) Put(key domain.VenueKey, info domain.VenueInfo) {
	if info.QueriedAt.IsZero() {
		info.QueriedAt = c.now()
	}
	c.entries.Store(key, cacheEntry{info: info})
}

// TTL returns the configured time-to-live.
func (c *MemoryVenueCache) TTL() time.Duration {
	return c.ttl
}

// Compile-time interface check.
var _ domain.VenueCache = (*MemoryVenueCache)(nil)
