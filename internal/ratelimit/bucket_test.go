// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ratelimit

import (
	"math"
	"testing"
	"time"
)

func TestBucket_BurstWithinBudget(t *testing.T) {
	clk := newFakeClock()
	b := newBucket(1_048_576, 10_485_760, clk)

	var throttled int
	for i := 0; i < 10; i++ {
		allowed, _ := b.Consume(1_048_576)
		if !allowed {
			throttled++
		}
	}
	if throttled != 0 {
		t.Errorf("expected zero throttles in burst-within-budget, got %d", throttled)
	}
}

func TestBucket_BurstExhaustion(t *testing.T) {
	clk := newFakeClock()
	b := newBucket(1_048_576, 10_485_760, clk)

	allowed, wait := b.Consume(10_485_760)
	if !allowed || wait != 0 {
		t.Fatalf("first consume should be allowed with no wait, got allowed=%v wait=%v", allowed, wait)
	}

	allowed, wait = b.Consume(1)
	if allowed {
		t.Fatal("second consume should be denied")
	}
	if math.Abs(wait-9.5e-7) > 1e-7 {
		t.Errorf("expected wait ~9.5e-7, got %v", wait)
	}

	throttledPackets, throttledBytes := b.Stats()
	if throttledPackets != 1 {
		t.Errorf("expected throttled=1, got %d", throttledPackets)
	}
	if throttledBytes != 1 {
		t.Errorf("expected throttled_bytes=1, got %d", throttledBytes)
	}
}

func TestBucket_ConsumeZeroAlwaysAllowed(t *testing.T) {
	clk := newFakeClock()
	b := newBucket(100, 100, clk)

	b.Consume(100) // drain fully
	allowed, wait := b.Consume(0)
	if !allowed || wait != 0 {
		t.Errorf("consume(0) must always be allowed with no wait, got allowed=%v wait=%v", allowed, wait)
	}
}

func TestBucket_RefillOverTime(t *testing.T) {
	clk := newFakeClock()
	b := newBucket(10, 100, clk) // 10 bytes/sec, capacity 100

	b.Consume(100) // drain fully
	clk.Advance(time.Second)
	allowed, _ := b.Consume(10)
	if !allowed {
		t.Error("expected refill to admit 10 bytes after 1 second at rate 10/s")
	}
}

func TestBucket_NeverExceedsCapacityPlusRateDelta(t *testing.T) {
	clk := newFakeClock()
	const rate, capacity = 1000.0, 5000.0
	b := newBucket(rate, capacity, clk)

	var admitted float64
	for i := 0; i < 20; i++ {
		clk.Advance(100 * time.Millisecond)
		allowed, _ := b.Consume(700)
		if allowed {
			admitted += 700
		}
	}
	// Across 2s elapsed the bucket should never admit more than
	// capacity + rate*elapsed.
	const elapsed = 2.0
	maxAdmitted := capacity + rate*elapsed
	if admitted > maxAdmitted {
		t.Errorf("admitted %v bytes exceeds C + R*Δt = %v", admitted, maxAdmitted)
	}
}

func TestBucket_InvalidConstructionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-positive rate")
		}
	}()
	NewBucket(0, 10)
}

func TestBucket_NegativeConsumePanics(t *testing.T) {
	b := NewBucket(10, 10)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative consume")
		}
	}()
	b.Consume(-1)
}
