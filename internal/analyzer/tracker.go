// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package analyzer implements the unprivileged analyzer (spec.md §4.9):
// per-IP tracker state, quick threat scoring, the enrichment driver, the
// inactivity cleanup task, and throttle-command dispatch.
package analyzer

import (
	"sync"
	"time"
)

// rateSample is one (timestamp, size) pair in a tracker's one-second
// rate deque (spec.md §4.9 step 3).
type rateSample struct {
	at   time.Time
	size uint64
}

// Tracker is the analyzer's per-source-IP state machine (spec.md §4.9).
// The packet-descriptor loop is its primary writer, but the enrichment
// driver and cleanup task read live trackers out of the shared table
// concurrently, so every field access goes through the mutex.
type Tracker struct {
	IP string

	mu            sync.Mutex
	packetCount   uint64
	byteCount     uint64
	firstSeen     time.Time
	lastSeen      time.Time
	everThrottled bool
	quickScore    int
	samples       []rateSample
	recentBytes   uint64
}

// NewTracker creates a tracker observed for the first time at now.
func NewTracker(ip string, now time.Time) *Tracker {
	return &Tracker{IP: ip, firstSeen: now, lastSeen: now}
}

// Observe records one packet of size bytes arriving at now, expiring
// rate-deque entries older than one second from the head.
func (t *Tracker) Observe(now time.Time, size uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.packetCount++
	t.byteCount += size
	t.lastSeen = now

	t.samples = append(t.samples, rateSample{at: now, size: size})
	t.recentBytes += size
	t.expireOlderThanOneSecondLocked(now)
}

func (t *Tracker) expireOlderThanOneSecondLocked(now time.Time) {
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(t.samples) && t.samples[i].at.Before(cutoff) {
		t.recentBytes -= t.samples[i].size
		i++
	}
	if i > 0 {
		t.samples = t.samples[i:]
	}
}

// RecentRateMbps returns the tracker's byte rate over the trailing
// one-second window, as of now, in megabits per second.
func (t *Tracker) RecentRateMbps(now time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireOlderThanOneSecondLocked(now)
	return float64(t.recentBytes) * 8 / 1_000_000
}

// Inactive reports whether now is more than d past the tracker's last
// observed packet (spec.md §4.9 cleanup task, one-hour threshold).
func (t *Tracker) Inactive(now time.Time, d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Sub(t.lastSeen) > d
}

// PacketCount returns the total packets this tracker has observed.
func (t *Tracker) PacketCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.packetCount
}

// ByteCount returns the total bytes this tracker has observed.
func (t *Tracker) ByteCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byteCount
}

// FirstSeen returns when this tracker was created.
func (t *Tracker) FirstSeen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firstSeen
}

// LastSeen returns the timestamp of the most recently observed packet.
func (t *Tracker) LastSeen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

// EverThrottled reports whether a throttle command has ever been sent
// for this tracker's IP.
func (t *Tracker) EverThrottled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.everThrottled
}

// MarkThrottled records that a throttle command has been sent.
func (t *Tracker) MarkThrottled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.everThrottled = true
}

// QuickScore returns the most recently computed quick threat score.
func (t *Tracker) QuickScore() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quickScore
}

// SetQuickScore records a newly computed quick threat score.
func (t *Tracker) SetQuickScore(score int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quickScore = score
}
