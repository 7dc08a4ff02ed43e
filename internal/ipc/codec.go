// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ipc implements the length-prefixed, schema-validated message
// fabric connecting the interceptor and the analyzer (spec.md §4.7).
// Every frame is a 4-byte big-endian length followed by that many bytes
// of UTF-8 JSON, capped at MaxFrameSize. The codec does not care
// whether the underlying io.ReadWriteCloser is an in-process pipe or a
// real socket; it only assumes ordered, reliable delivery within one
// connection.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/shielderr"
)

// MaxFrameSize bounds a single encoded JSON body (spec.md §4.7, §6).
const MaxFrameSize = 65536

const lengthPrefixSize = 4

// Codec frames and unframes JSON messages over conn. Writes are
// serialized by an internal mutex so multiple goroutines may call
// WriteDescriptor/WriteCommand concurrently; reads are expected to be
// driven by a single reader loop per spec.md §5.
type Codec struct {
	conn   io.ReadWriteCloser
	logger *logging.Logger

	writeMu sync.Mutex
}

// NewCodec wraps conn. logger receives a warning for every discarded
// oversized or malformed frame.
func NewCodec(conn io.ReadWriteCloser, logger *logging.Logger) *Codec {
	return &Codec{conn: conn, logger: logger.WithComponent("ipc")}
}

// Close closes the underlying connection.
func (c *Codec) Close() error {
	return c.conn.Close()
}

func (c *Codec) writeFrame(body []byte) error {
	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: encoded body %d bytes exceeds max frame size %d", shielderr.InvalidFrame, len(body), MaxFrameSize)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := c.conn.Write(prefix[:]); err != nil {
		return fmt.Errorf("%w: write length prefix: %s", shielderr.PeerUnavailable, err)
	}
	if _, err := c.conn.Write(body); err != nil {
		return fmt.Errorf("%w: write frame body: %s", shielderr.PeerUnavailable, err)
	}
	return nil
}

// readFrame reads exactly one frame, enforcing MaxFrameSize before
// attempting to allocate a buffer for the body. An oversized frame is
// still consumed and discarded so framing on the connection is not
// corrupted for the next frame (spec.md §8 testable property).
func (c *Codec) readFrame() ([]byte, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(c.conn, prefix[:]); err != nil {
		return nil, fmt.Errorf("%w: read length prefix: %s", shielderr.PeerUnavailable, err)
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFrameSize {
		if _, err := io.CopyN(io.Discard, c.conn, int64(n)); err != nil {
			return nil, fmt.Errorf("%w: discard oversized frame: %s", shielderr.PeerUnavailable, err)
		}
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds max frame size %d", shielderr.InvalidFrame, n, MaxFrameSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, fmt.Errorf("%w: read frame body: %s", shielderr.PeerUnavailable, err)
	}
	return body, nil
}

// WriteDescriptor encodes and frames d.
func (c *Codec) WriteDescriptor(d PacketDescriptor) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: encode packet descriptor: %s", shielderr.InvalidFrame, err)
	}
	return c.writeFrame(body)
}

// ReadDescriptor reads and validates one packet descriptor frame. A
// malformed or invalid descriptor is reported as shielderr.InvalidFrame
// so callers can drop it and continue reading; it never terminates the
// reader loop on its own.
func (c *Codec) ReadDescriptor() (PacketDescriptor, error) {
	body, err := c.readFrame()
	if err != nil {
		return PacketDescriptor{}, err
	}
	var d PacketDescriptor
	if err := json.Unmarshal(body, &d); err != nil {
		return PacketDescriptor{}, fmt.Errorf("%w: decode packet descriptor: %s", shielderr.InvalidFrame, err)
	}
	if !d.Validate() {
		return PacketDescriptor{}, fmt.Errorf("%w: packet descriptor failed validation", shielderr.InvalidFrame)
	}
	return d, nil
}

// WriteCommand encodes and frames cmd.
func (c *Codec) WriteCommand(cmd Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: encode command: %s", shielderr.InvalidFrame, err)
	}
	return c.writeFrame(body)
}

// ReadCommand reads and validates one command frame. Same
// drop-and-continue contract as ReadDescriptor.
func (c *Codec) ReadCommand() (Command, error) {
	body, err := c.readFrame()
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: decode command: %s", shielderr.InvalidFrame, err)
	}
	if !cmd.Validate() {
		return Command{}, fmt.Errorf("%w: command failed validation", shielderr.InvalidFrame)
	}
	return cmd, nil
}
