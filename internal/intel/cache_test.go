// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_PutGetRoundtrip(t *testing.T) {
	c := NewCache(10, time.Hour)
	p := NewProfile("203.0.113.9", time.Now())
	c.Put(p.IP, p)

	got, ok := c.Get(p.IP)
	assert.True(t, ok)
	assert.Equal(t, p.IP, got.IP)
}

func TestCache_CapacityEvictsLRU(t *testing.T) {
	c := NewCache(2, time.Hour)
	c.Put("a", NewProfile("a", time.Now()))
	c.Put("b", NewProfile("b", time.Now()))
	c.Put("c", NewProfile("c", time.Now())) // evicts "a" (least recently used)

	assert.LessOrEqual(t, c.Len(), 2)
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestCache_GetPromotesToMostRecentlyUsed(t *testing.T) {
	c := NewCache(2, time.Hour)
	c.Put("a", NewProfile("a", time.Now()))
	c.Put("b", NewProfile("b", time.Now()))

	c.Get("a") // promote a
	c.Put("c", NewProfile("c", time.Now()))

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	assert.True(t, aOK, "a should survive eviction after promotion")
	assert.False(t, bOK, "b should have been evicted as least-recently-used")
}

func TestCache_TTLZeroAlwaysMisses(t *testing.T) {
	c := NewCache(10, 0)
	c.Put("a", NewProfile("a", time.Now()))
	_, ok := c.Get("a")
	assert.False(t, ok, "TTL=0 must always report not found")
}

func TestCache_NeverExceedsMaxSize(t *testing.T) {
	const maxSize = 5
	c := NewCache(maxSize, time.Hour)
	for i := 0; i < 50; i++ {
		ip := string(rune('a' + (i % 26)))
		c.Put(ip, NewProfile(ip, time.Now()))
		assert.LessOrEqual(t, c.Len(), maxSize)
	}
}

func TestCache_Values(t *testing.T) {
	c := NewCache(10, time.Hour)
	c.Put("a", NewProfile("a", time.Now()))
	c.Put("b", NewProfile("b", time.Now()))
	assert.Len(t, c.Values(), 2)
}
