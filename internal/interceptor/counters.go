// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package interceptor

import (
	"sync"

	"netshield.dev/netshield/internal/ipc"
)

// ProtocolStats is the per-protocol counter snapshot spec.md §3 names.
type ProtocolStats struct {
	Packets        uint64
	Bytes          uint64
	DroppedPackets uint64
	DroppedBytes   uint64
}

// counterTable tracks ProtocolStats under its own mutex, independent of
// the throttled-IP set's lock (spec.md §4.8: "the counter table uses a
// separate mutex").
type counterTable struct {
	mu      sync.Mutex
	byProto map[ipc.Protocol]*ProtocolStats
}

func newCounterTable() *counterTable {
	return &counterTable{byProto: make(map[ipc.Protocol]*ProtocolStats)}
}

func (c *counterTable) record(proto ipc.Protocol, length int, dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byProto[proto]
	if !ok {
		s = &ProtocolStats{}
		c.byProto[proto] = s
	}
	s.Packets++
	s.Bytes += uint64(length)
	if dropped {
		s.DroppedPackets++
		s.DroppedBytes += uint64(length)
	}
}

// Snapshot returns a copy of the current per-protocol counters.
func (c *counterTable) Snapshot() map[ipc.Protocol]ProtocolStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ipc.Protocol]ProtocolStats, len(c.byProto))
	for proto, s := range c.byProto {
		out[proto] = *s
	}
	return out
}
