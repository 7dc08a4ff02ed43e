// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package interceptor

import (
	"errors"
	"fmt"

	"netshield.dev/netshield/internal/ipc"
	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/ratelimit"
	"netshield.dev/netshield/internal/shielderr"
)

// maxConsecutiveReceiveErrors is the fatal threshold for recoverable
// kernel receive errors (spec.md §4.8 step 1).
const maxConsecutiveReceiveErrors = 10

// metadataQueueCapacity bounds the outbound descriptor queue. The hot
// path never blocks on this channel; a full queue drops the descriptor
// silently (spec.md §4.8 step 8).
const metadataQueueCapacity = 4096

// Interceptor runs the privileged hot path: receive, classify, decide,
// count, reinject-or-drop, and best-effort report to the analyzer.
type Interceptor struct {
	source    Source
	bucket    *ratelimit.Bucket
	window    *ratelimit.Window
	counters  *counterTable
	throttled *throttleSet

	metadataOut chan ipc.PacketDescriptor
	commandLink *ipc.Codec
	logger      *logging.Logger

	running chan struct{}
	stopped chan struct{}
}

// New builds an Interceptor. bucket and window are injected so the
// supervisor can size them from configuration; commandLink is this
// side's command channel (see ipc.Link).
func New(source Source, bucket *ratelimit.Bucket, window *ratelimit.Window, commandLink *ipc.Codec, logger *logging.Logger) *Interceptor {
	return &Interceptor{
		source:      source,
		bucket:      bucket,
		window:      window,
		counters:    newCounterTable(),
		throttled:   newThrottleSet(),
		metadataOut: make(chan ipc.PacketDescriptor, metadataQueueCapacity),
		commandLink: commandLink,
		logger:      logger.WithComponent("interceptor"),
		running:     make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Counters returns a snapshot of the per-protocol counter table.
func (ic *Interceptor) Counters() map[ipc.Protocol]ProtocolStats {
	return ic.counters.Snapshot()
}

// ThrottledCount reports how many IPs are currently in the throttled
// set.
func (ic *Interceptor) ThrottledCount() int {
	return ic.throttled.len()
}

// IsThrottled reports whether ip is in the throttled set.
func (ic *Interceptor) IsThrottled(ip string) bool {
	return ic.throttled.contains(ip)
}

// Metadata exposes the channel the metadata-sender goroutine drains;
// RunMetadataSender reads from it and frames descriptors onto a Codec.
func (ic *Interceptor) Metadata() <-chan ipc.PacketDescriptor {
	return ic.metadataOut
}

// RunMetadataSender drains ic.Metadata() and writes each descriptor to
// codec until the channel is closed. It is meant to run on its own
// goroutine, separate from the hot receive loop.
func RunMetadataSender(ic *Interceptor, codec *ipc.Codec) {
	for d := range ic.metadataOut {
		if err := codec.WriteDescriptor(d); err != nil {
			ic.logger.Warn("failed to send packet descriptor", "error", err)
		}
	}
}

// RunCommands drives the command-handling task (spec.md §4.8, last
// paragraph). It returns only when the command channel reports an error
// such as peer unavailability; a shutdown command closes ShuttingDown(),
// which stops Run, while command reading continues.
func (ic *Interceptor) RunCommands() error {
	defer close(ic.stopped)
	return ipc.RunCommandReader(ic.commandLink, ic.logger, func(cmd ipc.Command) {
		switch cmd.Tag {
		case ipc.CommandThrottleIP:
			ic.throttled.add(cmd.TargetIP)
		case ipc.CommandUnthrottleIP:
			ic.throttled.remove(cmd.TargetIP)
		case ipc.CommandShutdown:
			select {
			case <-ic.running:
			default:
				close(ic.running)
			}
		case ipc.CommandGetStats:
			// Stats are served through a distinct mechanism outside
			// the core (spec.md §4.8); nothing to do on this path.
		}
	})
}

// Stopped reports whether RunCommands has exited, closing off command
// processing.
func (ic *Interceptor) Stopped() <-chan struct{} { return ic.stopped }

// ShuttingDown reports whether a shutdown command has been received.
func (ic *Interceptor) ShuttingDown() <-chan struct{} { return ic.running }

// Run drives the hot receive loop until the source is closed or
// maxConsecutiveReceiveErrors consecutive recoverable errors occur.
// It MUST NOT be called from the same goroutine as RunMetadataSender or
// RunCommands (spec.md §5: the receive loop owns the kernel handle and
// runs on its own thread).
func (ic *Interceptor) Run() error {
	defer close(ic.metadataOut)

	consecutiveErrors := 0
	for {
		select {
		case <-ic.running:
			return nil
		default:
		}

		pkt, err := ic.source.Receive()
		if err != nil {
			if errors.Is(err, shielderr.PeerUnavailable) {
				return err
			}
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveReceiveErrors {
				return fmt.Errorf("%w: %d consecutive kernel receive errors", shielderr.KernelRecvTransient, consecutiveErrors)
			}
			continue
		}
		consecutiveErrors = 0

		ic.handlePacket(pkt)
	}
}

func (ic *Interceptor) handlePacket(pkt Packet) {
	ipBlocked := ic.throttled.contains(pkt.SourceIP)
	bucketOK, _ := ic.bucket.Consume(float64(pkt.Length))
	drop := ipBlocked || !bucketOK

	ic.counters.record(pkt.Protocol, pkt.Length, drop)

	if drop {
		ic.source.Verdict(pkt, VerdictDrop)
		return
	}

	ic.window.AddSample(uint64(pkt.Length))
	ic.source.Verdict(pkt, VerdictAccept)

	descriptor := ipc.PacketDescriptor{
		SourceIP: pkt.SourceIP, DestIP: pkt.DestIP,
		SourcePort: pkt.SourcePort, DestPort: pkt.DestPort,
		Protocol: pkt.Protocol, Length: pkt.Length, TimestampUnix: pkt.TimestampUnix,
	}
	select {
	case ic.metadataOut <- descriptor:
	default:
		// Channel congestion does not block the hot path (spec.md §4.8
		// step 8); the descriptor is dropped.
	}
}
