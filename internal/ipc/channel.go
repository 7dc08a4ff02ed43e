// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipc

import (
	"errors"
	"net"

	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/shielderr"
)

// Link holds the two distinct, one-directional channels connecting the
// interceptor and the analyzer (spec.md §4.7): a metadata stream
// flowing interceptor→analyzer, and a command stream flowing
// analyzer→interceptor. Each direction is backed by its own net.Conn so
// the two can never be confused at the type level.
type Link struct {
	Metadata *Codec
	Command  *Codec
}

// NewInProcessLink builds a Link running over in-memory net.Pipe
// connections, for the single-process deployment this reference
// implementation runs (see DESIGN.md's process-topology decision). One
// call returns both ends of the same two pipes: wire the interceptor to
// interceptorSide and the analyzer to analyzerSide.
func NewInProcessLink(logger *logging.Logger) (interceptorSide, analyzerSide Link) {
	metaA, metaB := net.Pipe()
	cmdA, cmdB := net.Pipe()
	interceptorSide = Link{
		Metadata: NewCodec(metaA, logger),
		Command:  NewCodec(cmdB, logger),
	}
	analyzerSide = Link{
		Metadata: NewCodec(metaB, logger),
		Command:  NewCodec(cmdA, logger),
	}
	return interceptorSide, analyzerSide
}

// Close closes both of the link's underlying connections.
func (l Link) Close() error {
	err1 := l.Metadata.Close()
	err2 := l.Command.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// RunDescriptorReader drives codec.ReadDescriptor in a loop, invoking
// handle for every descriptor that passes validation. Malformed or
// oversized frames are logged and skipped (spec.md §7 InvalidFrame); a
// PeerUnavailable error (read failure, peer closed) terminates the loop
// and is returned to the caller.
func RunDescriptorReader(codec *Codec, logger *logging.Logger, handle func(PacketDescriptor)) error {
	log := logger.WithComponent("ipc.reader")
	for {
		d, err := codec.ReadDescriptor()
		if err != nil {
			if errors.Is(err, shielderr.InvalidFrame) {
				log.Warn("discarding invalid packet descriptor frame", "error", err)
				continue
			}
			return err
		}
		handle(d)
	}
}

// RunCommandReader is RunDescriptorReader's analog for the command
// channel.
func RunCommandReader(codec *Codec, logger *logging.Logger, handle func(Command)) error {
	log := logger.WithComponent("ipc.reader")
	for {
		cmd, err := codec.ReadCommand()
		if err != nil {
			if errors.Is(err, shielderr.InvalidFrame) {
				log.Warn("discarding invalid command frame", "error", err)
				continue
			}
			return err
		}
		handle(cmd)
	}
}
