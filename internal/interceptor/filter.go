// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package interceptor

import "netshield.dev/netshield/internal/config"

// PortRange is an inclusive [Low, High] range of source ports a filter
// expression matches. A single port is represented as Low == High.
type PortRange struct {
	Low, High uint16
}

// FilterExpr describes which inbound packets the kernel should divert
// to the interceptor, derived from the configured mode (spec.md §4.8).
type FilterExpr struct {
	UDPPorts []PortRange
	TCPPorts []PortRange
	AnyUDP   bool
	AnyTCP   bool
}

// matches reports whether proto/port falls inside the expression.
func (f FilterExpr) matches(proto string, port uint16) bool {
	var ranges []PortRange
	switch proto {
	case "udp":
		if f.AnyUDP {
			return true
		}
		ranges = f.UDPPorts
	case "tcp":
		if f.AnyTCP {
			return true
		}
		ranges = f.TCPPorts
	default:
		return false
	}
	for _, r := range ranges {
		if port >= r.Low && port <= r.High {
			return true
		}
	}
	return false
}

// BuildFilterExpr derives the kernel diversion filter for the
// configured mode (spec.md §4.8).
func BuildFilterExpr(mode config.Mode) FilterExpr {
	switch mode {
	case config.ModeVRChat:
		return FilterExpr{
			UDPPorts: []PortRange{
				{5055, 5055}, {5056, 5056}, {5058, 5058},
				{27000, 27100},
			},
			TCPPorts: []PortRange{{80, 80}, {443, 443}},
		}
	case config.ModeUniversal:
		return FilterExpr{AnyUDP: true, AnyTCP: true}
	case config.ModeCustom:
		return FilterExpr{AnyUDP: true}
	default:
		return FilterExpr{AnyUDP: true}
	}
}
