// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package interceptor

import "fmt"

// NFQueueSource is a stub on non-Linux systems: nfqueue is a Linux
// netfilter facility with no portable equivalent, matching the
// teacher's own ctlplane/nfqueue_stub.go pattern for the same reason.
type NFQueueSource struct{}

// NewNFQueueSource returns an error on non-Linux systems. queueNum and
// expr are accepted so call sites compile identically on every
// platform.
func NewNFQueueSource(queueNum uint16, expr FilterExpr) (*NFQueueSource, error) {
	return nil, fmt.Errorf("nfqueue is only supported on Linux")
}

func (s *NFQueueSource) Receive() (Packet, error) {
	return Packet{}, fmt.Errorf("nfqueue unsupported on this platform")
}

func (s *NFQueueSource) Verdict(p Packet, v Verdict) error {
	return fmt.Errorf("nfqueue unsupported on this platform")
}

func (s *NFQueueSource) Close() error { return nil }
