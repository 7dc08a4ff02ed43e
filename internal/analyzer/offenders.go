// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package analyzer

import "container/heap"

// Offender is one entry in the session summary's top-N offenders list
// (spec.md §3), ranked by how many of its packets were ultimately
// dropped.
type Offender struct {
	IP        string
	DropCount uint64
}

// offenderHeap is a bounded min-heap over DropCount: the smallest
// offender currently kept is always at the root, so a new candidate
// only needs to be compared against it — the same
// keep-only-the-top-N-without-a-full-sort approach the original
// implementation's Counter.most_common(n) achieves via a heap
// internally (SPEC_FULL.md supplemented features).
type offenderHeap []Offender

func (h offenderHeap) Len() int            { return len(h) }
func (h offenderHeap) Less(i, j int) bool  { return h[i].DropCount < h[j].DropCount }
func (h offenderHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *offenderHeap) Push(x interface{}) { *h = append(*h, x.(Offender)) }
func (h *offenderHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Offenders returns up to topN throttled trackers ranked by packet
// count, descending — the tracker's own packet count once it has been
// throttled stands in for "how much traffic this offender caused to be
// dropped" (SPEC_FULL.md supplemented features: a bounded min-heap over
// the packet counts of throttled trackers). Trackers never throttled this
// session are excluded.
func (a *Analyzer) Offenders(topN int) []Offender {
	if topN <= 0 {
		return nil
	}
	h := &offenderHeap{}
	heap.Init(h)

	for _, t := range a.trackers.snapshot() {
		if !t.EverThrottled() {
			continue
		}
		count := t.PacketCount()
		if h.Len() < topN {
			heap.Push(h, Offender{IP: t.IP, DropCount: count})
			continue
		}
		if count > (*h)[0].DropCount {
			heap.Pop(h)
			heap.Push(h, Offender{IP: t.IP, DropCount: count})
		}
	}

	out := make([]Offender, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Offender)
	}
	return out
}
