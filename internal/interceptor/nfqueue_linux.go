// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package interceptor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/florianl/go-nfqueue/v2"
	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"

	"netshield.dev/netshield/internal/ipc"
	"netshield.dev/netshield/internal/shielderr"
)

func ipcProtocol(tag string) ipc.Protocol {
	switch tag {
	case "tcp":
		return ipc.ProtocolTCP
	default:
		return ipc.ProtocolUDP
	}
}

const nftableName = "netshield"

// NFQueueSource is the real Linux Source backed by an nfqueue handle.
// It installs the nftables rules diverting packets matching expr to
// queueNum on construction, mirroring the teacher's own
// internal/kernel/provider_linux.go use of google/nftables.
//
// go-nfqueue's API is callback-driven rather than pull-based; Receive
// bridges the two by registering a hook once (on first Receive call)
// that forwards every parsed packet onto a buffered channel, then
// blocks reading from that channel.
type NFQueueSource struct {
	nf       *nfqueue.Nfqueue
	queueNum uint16

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	packets   chan Packet
	hookErr   chan error
}

// NewNFQueueSource opens nfqueue number queueNum and installs the
// nftables rules derived from expr.
func NewNFQueueSource(queueNum uint16, expr FilterExpr) (*NFQueueSource, error) {
	if err := installNftablesRules(queueNum, expr); err != nil {
		return nil, fmt.Errorf("%w: install nftables rules: %s", shielderr.PrivilegeDenied, err)
	}

	cfg := nfqueue.Config{
		NfQueue:      queueNum,
		MaxPacketLen: 0xFFFF,
		MaxQueueLen:  0xFF,
		Copymode:     nfqueue.NfQnlCopyPacket,
		WriteTimeout: 15 * time.Millisecond,
	}
	nf, err := nfqueue.Open(&cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open nfqueue %d: %s", shielderr.PrivilegeDenied, queueNum, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &NFQueueSource{
		nf: nf, queueNum: queueNum,
		ctx: ctx, cancel: cancel,
		packets: make(chan Packet, 1024),
		hookErr: make(chan error, 1),
	}, nil
}

func (s *NFQueueSource) start() {
	fn := func(a nfqueue.Attribute) int {
		if a.PacketID == nil || a.Payload == nil {
			return 0
		}
		pkt, ok := parseIPPacket(*a.Payload)
		if !ok {
			s.nf.SetVerdict(*a.PacketID, nfqueue.NfDrop)
			return 0
		}
		pkt.kernelID = *a.PacketID
		select {
		case s.packets <- pkt:
		case <-s.ctx.Done():
		}
		return 0
	}
	if err := s.nf.RegisterWithErrorFunc(s.ctx, fn, func(err error) int { return 0 }); err != nil {
		s.hookErr <- fmt.Errorf("%w: register nfqueue hook: %s", shielderr.PeerUnavailable, err)
	}
}

// Receive implements Source.
func (s *NFQueueSource) Receive() (Packet, error) {
	s.startOnce.Do(s.start)
	select {
	case err := <-s.hookErr:
		return Packet{}, err
	case pkt := <-s.packets:
		return pkt, nil
	case <-s.ctx.Done():
		return Packet{}, fmt.Errorf("%w: nfqueue source closed", shielderr.PeerUnavailable)
	}
}

// Verdict implements Source, reporting p's disposition to the kernel by
// its nfqueue packet ID.
func (s *NFQueueSource) Verdict(p Packet, v Verdict) error {
	nfv := nfqueue.NfDrop
	if v == VerdictAccept {
		nfv = nfqueue.NfAccept
	}
	return s.nf.SetVerdict(p.kernelID, nfv)
}

// Close tears down the nfqueue handle. It does not remove the nftables
// table installed by NewNFQueueSource, and nothing else in netshield
// removes it, so the rules persist across restarts.
func (s *NFQueueSource) Close() error {
	s.cancel()
	return s.nf.Close()
}

func parseIPPacket(raw []byte) (Packet, bool) {
	if len(raw) < 20 {
		return Packet{}, false
	}
	version := raw[0] >> 4
	switch version {
	case 4:
		return parseIPv4(raw)
	default:
		// IPv6 is not parsed: the nftables rule above only ever installs
		// an IPv4 table/chain, so no IPv6 traffic reaches this queue.
		return Packet{}, false
	}
}

func parseIPv4(raw []byte) (Packet, bool) {
	ihl := int(raw[0]&0x0F) * 4
	if len(raw) < ihl+4 {
		return Packet{}, false
	}
	proto := raw[9]
	src := net.IP(raw[12:16]).String()
	dst := net.IP(raw[16:20]).String()
	length := int(raw[2])<<8 | int(raw[3])

	var protoTag string
	var srcPort, dstPort int
	switch proto {
	case unix.IPPROTO_TCP:
		protoTag = "tcp"
	case unix.IPPROTO_UDP:
		protoTag = "udp"
	default:
		return Packet{}, false
	}
	if len(raw) >= ihl+4 {
		srcPort = int(raw[ihl])<<8 | int(raw[ihl+1])
		dstPort = int(raw[ihl+2])<<8 | int(raw[ihl+3])
	}

	return Packet{
		SourceIP: src, DestIP: dst,
		SourcePort: srcPort, DestPort: dstPort,
		Protocol: ipcProtocol(protoTag), Length: length,
		TimestampUnix: float64(time.Now().UnixNano()) / 1e9,
	}, true
}

// installNftablesRules creates a dedicated table/chain diverting
// matching inbound traffic to queueNum, the same google/nftables
// construction style as internal/kernel/provider_linux.go.
func installNftablesRules(queueNum uint16, f FilterExpr) error {
	conn, err := nftables.New()
	if err != nil {
		return err
	}

	table := conn.AddTable(&nftables.Table{Name: nftableName, Family: nftables.TableFamilyIPv4})
	chain := conn.AddChain(&nftables.Chain{
		Name:     "inbound",
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	})

	addQueueRule := func(proto uint8, port PortRange) {
		conn.AddRule(&nftables.Rule{
			Table: table,
			Chain: chain,
			Exprs: []expr.Any{
				&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
				&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{proto}},
				&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseTransportHeader, Offset: 0, Len: 2},
				&expr.Cmp{Op: expr.CmpOpGte, Register: 1, Data: binaryutil.BigEndian.PutUint16(port.Low)},
				&expr.Cmp{Op: expr.CmpOpLte, Register: 1, Data: binaryutil.BigEndian.PutUint16(port.High)},
				&expr.Queue{Num: queueNum},
			},
		})
	}

	if f.AnyTCP {
		addQueueRule(unix.IPPROTO_TCP, PortRange{0, 65535})
	}
	for _, r := range f.TCPPorts {
		addQueueRule(unix.IPPROTO_TCP, r)
	}
	if f.AnyUDP {
		addQueueRule(unix.IPPROTO_UDP, PortRange{0, 65535})
	}
	for _, r := range f.UDPPorts {
		addQueueRule(unix.IPPROTO_UDP, r)
	}

	return conn.Flush()
}
