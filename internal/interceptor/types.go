// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package interceptor implements the privileged packet-interceptor hot
// path (spec.md §4.8): a platform-agnostic core driven by an injected
// kernel packet source, so the decision logic can be exercised without
// root privileges or a real netfilter queue.
package interceptor

import (
	"netshield.dev/netshield/internal/ipc"
)

// Packet is the interceptor's internal view of one captured packet,
// decoupled from whichever kernel API produced it.
type Packet struct {
	SourceIP      string
	DestIP        string
	SourcePort    int
	DestPort      int
	Protocol      ipc.Protocol
	Length        int
	TimestampUnix float64

	// kernelID identifies this packet to the underlying kernel source
	// (e.g. an nfqueue packet ID) so Verdict can be routed back without
	// the platform-agnostic core knowing anything about it.
	kernelID uint32
}

// Verdict is the disposition the interceptor reaches for a Packet.
type Verdict int

const (
	VerdictAccept Verdict = iota
	VerdictDrop
)

// Source abstracts the privileged kernel packet queue (real nfqueue on
// Linux, a stub everywhere else, or a fake in tests). Receive blocks
// until a packet arrives or the source is closed, in which case it
// returns a non-nil error. Verdict reports the interceptor's decision
// back to the kernel so the held packet can be released or dropped.
type Source interface {
	Receive() (Packet, error)
	Verdict(p Packet, v Verdict) error
	Close() error
}
