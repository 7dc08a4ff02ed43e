// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"time"

	"netshield.dev/netshield/internal/analyzer"
	"netshield.dev/netshield/internal/interceptor"
	"netshield.dev/netshield/internal/ipc"
)

// topOffenders is how many entries the session summary's offender list
// carries (spec.md §3).
const topOffenders = 10

// ProtocolBreakdown is one protocol's share of the session summary
// (spec.md §3).
type ProtocolBreakdown struct {
	Protocol       ipc.Protocol `json:"protocol"`
	Packets        uint64       `json:"packets"`
	Bytes          uint64       `json:"bytes"`
	DroppedPackets uint64       `json:"dropped_packets"`
	DroppedBytes   uint64       `json:"dropped_bytes"`
}

// Summary is the end-of-session report spec.md §3 requires: process
// start time, cumulative traffic and drop counts, unique source IPs,
// flood-mode state, a per-protocol breakdown, and the top offenders by
// drop count.
type Summary struct {
	StartedAt    time.Time           `json:"started_at"`
	EndedAt      time.Time           `json:"ended_at"`
	TotalBytes   uint64              `json:"total_bytes"`
	TotalPackets uint64              `json:"total_packets"`
	UniqueIPs    int                 `json:"unique_ips"`
	Throttles    uint64              `json:"throttles"`
	FloodMode    bool                `json:"flood_mode"`
	Protocols    []ProtocolBreakdown `json:"protocols"`
	TopOffenders []analyzer.Offender `json:"top_offenders"`
}

// BuildSummary assembles a Summary from the interceptor's per-protocol
// counters and the analyzer's session-wide state. The interceptor owns
// ground-truth drop counts (it is the only component that ever drops a
// packet); the analyzer owns ground-truth unique-IP and flood-mode
// state, since only it sees validated source IPs across the session.
func BuildSummary(ic *interceptor.Interceptor, a *analyzer.Analyzer, endedAt time.Time) Summary {
	counters := ic.Counters()

	protocols := make([]ProtocolBreakdown, 0, len(counters))
	for proto, stats := range counters {
		protocols = append(protocols, ProtocolBreakdown{
			Protocol: proto, Packets: stats.Packets, Bytes: stats.Bytes,
			DroppedPackets: stats.DroppedPackets, DroppedBytes: stats.DroppedBytes,
		})
	}

	offenders := a.Offenders(topOffenders)

	return Summary{
		StartedAt:    a.SessionStart(),
		EndedAt:      endedAt,
		TotalBytes:   a.TotalBytes(),
		TotalPackets: a.TotalPackets(),
		UniqueIPs:    a.UniqueIPCount(),
		Throttles:    a.ThrottleCount(),
		FloodMode:    a.FloodMode(),
		Protocols:    protocols,
		TopOffenders: offenders,
	}
}
