// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ratelimit holds the two primitives the interceptor's hot path
// builds admission control on: a token bucket (spec.md §4.1) and a
// sliding-window throughput meter (spec.md §4.2). Neither type ever
// sleeps or blocks — the bucket returns a wait hint instead of waiting,
// because any sleep here would stall the kernel's packet queue under
// flood.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Clock abstracts the monotonic time source so tests can control elapsed
// time without sleeping. Production code uses realClock, which reads
// time.Now() — Go's time.Time already carries a monotonic reading, so
// Sub between two realClock samples is immune to wall-clock adjustment.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Bucket is a classical token bucket: rate R (bytes/second), capacity C
// (bytes). It is initialized full and is safe for any number of
// concurrent callers.
type Bucket struct {
	mu sync.Mutex

	rate     float64 // bytes/sec
	capacity float64 // bytes
	tokens   float64
	last     time.Time
	clock    Clock

	throttledPackets uint64
	throttledBytes   uint64
}

// NewBucket constructs a Bucket with rate R > 0 bytes/sec and capacity
// C > 0 bytes, initialized full. It panics if R or C is not positive —
// these are programmer errors (bad configuration), caught by
// config.Validate before a Bucket is ever constructed.
func NewBucket(rate, capacity float64) *Bucket {
	return newBucket(rate, capacity, realClock{})
}

func newBucket(rate, capacity float64, clock Clock) *Bucket {
	if rate <= 0 || capacity <= 0 {
		panic(fmt.Sprintf("ratelimit: invalid bucket rate=%v capacity=%v", rate, capacity))
	}
	return &Bucket{
		rate:     rate,
		capacity: capacity,
		tokens:   capacity,
		last:     clock.Now(),
		clock:    clock,
	}
}

// Consume requests n bytes from the bucket. n must be >= 0; a negative n
// panics. It refills the bucket to account for elapsed time, then either
// admits the request (decrementing tokens by n) or denies it, in which
// case tokens are left untouched and wait is the number of seconds until
// n bytes would be available. Consume never sleeps.
func (b *Bucket) Consume(n float64) (allowed bool, wait float64) {
	if n < 0 {
		panic("ratelimit: negative consume amount")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
		b.last = now
	}

	if b.tokens >= n {
		b.tokens -= n
		return true, 0
	}

	deficit := n - b.tokens
	b.throttledPackets++
	b.throttledBytes += uint64(n)
	return false, deficit / b.rate
}

// Stats returns the cumulative count of denied requests and the bytes
// those denied requests would have consumed.
func (b *Bucket) Stats() (throttledPackets, throttledBytes uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.throttledPackets, b.throttledBytes
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
