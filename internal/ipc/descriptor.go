// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipc

import (
	"netshield.dev/netshield/internal/intel"
)

// Protocol is the fixed enum of transport protocols a PacketDescriptor
// may carry (spec.md §3).
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// PacketDescriptor is the on-wire record the interceptor sends the
// analyzer for every packet it forwards (spec.md §3). Every field is
// required and is re-validated by the receiver regardless of the
// sender's own validation.
type PacketDescriptor struct {
	SourceIP      string   `json:"source_ip"`
	DestIP        string   `json:"dest_ip"`
	SourcePort    int      `json:"source_port"`
	DestPort      int      `json:"dest_port"`
	Protocol      Protocol `json:"protocol"`
	Length        int      `json:"length"`
	TimestampUnix float64  `json:"timestamp"`
}

// Validate reports whether d satisfies every invariant spec.md §3
// places on a packet descriptor. It never mutates d.
func (d PacketDescriptor) Validate() bool {
	if !validIPLiteral(d.SourceIP) || !validIPLiteral(d.DestIP) {
		return false
	}
	if !validPort(d.SourcePort) || !validPort(d.DestPort) {
		return false
	}
	switch d.Protocol {
	case ProtocolTCP, ProtocolUDP:
	default:
		return false
	}
	if d.Length < 0 || d.Length > 65535 {
		return false
	}
	if d.TimestampUnix < 0 {
		return false
	}
	return true
}

func validIPLiteral(s string) bool {
	return intel.IsValidIPLiteral(s)
}

func validPort(p int) bool {
	return p >= 0 && p <= 65535
}
