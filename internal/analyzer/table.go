// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package analyzer

import (
	"sync"
	"time"
)

// trackerTable is the tracker-table keyed by source IP (spec.md §4.9).
// It is read by the enrichment driver and the cleanup task concurrently
// with the packet-descriptor loop mutating it, so it carries its own
// lock even though individual *Tracker values are single-writer.
type trackerTable struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

func newTrackerTable() *trackerTable {
	return &trackerTable{trackers: make(map[string]*Tracker)}
}

// getOrCreate fetches the tracker for ip, creating one observed at now
// if absent.
func (tt *trackerTable) getOrCreate(ip string, now time.Time) *Tracker {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	t, ok := tt.trackers[ip]
	if !ok {
		t = NewTracker(ip, now)
		tt.trackers[ip] = t
	}
	return t
}

func (tt *trackerTable) delete(ip string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	delete(tt.trackers, ip)
}

// snapshot returns the current trackers, safe to range over without
// holding the table lock.
func (tt *trackerTable) snapshot() []*Tracker {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	out := make([]*Tracker, 0, len(tt.trackers))
	for _, t := range tt.trackers {
		out = append(out, t)
	}
	return out
}

func (tt *trackerTable) len() int {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return len(tt.trackers)
}
