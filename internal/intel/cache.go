// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package intel

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a bounded LRU mapping from IP literal to Profile with a
// per-entry TTL (spec.md §4.3), built on hashicorp/golang-lru's
// expirable LRU, which already serializes every operation behind its own
// internal lock. That library treats a zero TTL as "no expiry", which is
// the opposite of spec.md §8's boundary behavior ("TTL=0 returns not
// found for any read after any prior put"), so Cache special-cases
// ttl<=0 itself rather than ever constructing the underlying LRU with it.
type Cache struct {
	lru     *expirable.LRU[string, *Profile]
	noCache bool
}

// NewCache constructs a Cache with the given entry capacity and
// per-entry TTL.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{noCache: true}
	}
	return &Cache{lru: expirable.NewLRU[string, *Profile](maxSize, nil, ttl)}
}

// Get returns the profile for ip and promotes it to most-recently-used.
// An expired or absent entry reports not found.
func (c *Cache) Get(ip string) (*Profile, bool) {
	if c.noCache {
		return nil, false
	}
	return c.lru.Get(ip)
}

// Put inserts or updates the profile for ip. While the cache is at
// capacity, the least-recently-accessed entry is evicted first.
func (c *Cache) Put(ip string, profile *Profile) {
	if c.noCache {
		return
	}
	c.lru.Add(ip, profile)
}

// Delete removes ip's entry, if any.
func (c *Cache) Delete(ip string) {
	if c.noCache {
		return
	}
	c.lru.Remove(ip)
}

// Len returns the current number of live entries.
func (c *Cache) Len() int {
	if c.noCache {
		return 0
	}
	return c.lru.Len()
}

// Values returns a consistent snapshot of every non-expired profile.
func (c *Cache) Values() []*Profile {
	if c.noCache {
		return nil
	}
	return c.lru.Values()
}
