// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package interceptor

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netshield.dev/netshield/internal/config"
	"netshield.dev/netshield/internal/ipc"
	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/ratelimit"
	"netshield.dev/netshield/internal/shielderr"
)

func testLogger() *logging.Logger { return logging.New(logging.DefaultConfig()) }

type fakeSource struct {
	packets  []Packet
	idx      int
	verdicts []Verdict
	closed   bool
}

func (f *fakeSource) Receive() (Packet, error) {
	if f.idx >= len(f.packets) {
		return Packet{}, fmt.Errorf("%w: no more packets", shielderr.PeerUnavailable)
	}
	p := f.packets[f.idx]
	f.idx++
	return p, nil
}

func (f *fakeSource) Verdict(p Packet, v Verdict) error {
	f.verdicts = append(f.verdicts, v)
	return nil
}

func (f *fakeSource) Close() error { f.closed = true; return nil }

func newTestInterceptor(t *testing.T, src Source) (*Interceptor, *ipc.Codec) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	bucket := ratelimit.NewBucket(1_048_576, 10_485_760)
	window := ratelimit.NewWindow(time.Second)
	ic := New(src, bucket, window, ipc.NewCodec(b, testLogger()), testLogger())
	return ic, ipc.NewCodec(a, testLogger())
}

func TestInterceptor_DropsThrottledIPWithoutConsumingBucket(t *testing.T) {
	src := &fakeSource{packets: []Packet{
		{SourceIP: "203.0.113.5", Protocol: ipc.ProtocolUDP, Length: 100},
	}}
	ic, _ := newTestInterceptor(t, src)
	ic.throttled.add("203.0.113.5")

	require.Error(t, ic.Run())
	assert.Equal(t, []Verdict{VerdictDrop}, src.verdicts)

	stats := ic.Counters()[ipc.ProtocolUDP]
	assert.EqualValues(t, 1, stats.DroppedPackets)
}

func TestInterceptor_AcceptsWithinBudgetAndSendsDescriptor(t *testing.T) {
	src := &fakeSource{packets: []Packet{
		{SourceIP: "198.51.100.9", DestIP: "10.0.0.1", SourcePort: 5, DestPort: 6, Protocol: ipc.ProtocolTCP, Length: 500},
	}}
	ic, _ := newTestInterceptor(t, src)

	go ic.Run()

	select {
	case d := <-ic.Metadata():
		assert.Equal(t, "198.51.100.9", d.SourceIP)
		assert.Equal(t, ipc.ProtocolTCP, d.Protocol)
	case <-time.After(time.Second):
		t.Fatal("expected a descriptor to be sent for an accepted packet")
	}
}

func TestInterceptor_BucketExhaustionDropsExcessTraffic(t *testing.T) {
	bucket := ratelimit.NewBucket(1, 10) // tiny budget
	window := ratelimit.NewWindow(time.Second)
	src := &fakeSource{packets: []Packet{
		{SourceIP: "198.51.100.1", Protocol: ipc.ProtocolUDP, Length: 5},
		{SourceIP: "198.51.100.1", Protocol: ipc.ProtocolUDP, Length: 1_000_000},
	}}
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	ic := New(src, bucket, window, ipc.NewCodec(b, testLogger()), testLogger())

	require.Error(t, ic.Run())
	require.Len(t, src.verdicts, 2)
	assert.Equal(t, VerdictAccept, src.verdicts[0])
	assert.Equal(t, VerdictDrop, src.verdicts[1])
}

func TestInterceptor_CommandHandling(t *testing.T) {
	src := &fakeSource{}
	ic, clientCodec := newTestInterceptor(t, src)

	go ic.RunCommands()

	require.NoError(t, clientCodec.WriteCommand(ipc.Command{Tag: ipc.CommandThrottleIP, TargetIP: "203.0.113.5"}))
	require.Eventually(t, func() bool { return ic.IsThrottled("203.0.113.5") }, time.Second, time.Millisecond)

	require.NoError(t, clientCodec.WriteCommand(ipc.Command{Tag: ipc.CommandUnthrottleIP, TargetIP: "203.0.113.5"}))
	require.Eventually(t, func() bool { return !ic.IsThrottled("203.0.113.5") }, time.Second, time.Millisecond)
}

func TestInterceptor_FatalAfterTooManyReceiveErrors(t *testing.T) {
	src := &erroringSource{}
	ic, _ := newTestInterceptor(t, src)
	err := ic.Run()
	require.Error(t, err)
	assert.True(t, err != nil)
}

type erroringSource struct{ calls int }

func (e *erroringSource) Receive() (Packet, error) {
	e.calls++
	return Packet{}, fmt.Errorf("transient kernel read error")
}
func (e *erroringSource) Verdict(p Packet, v Verdict) error { return nil }
func (e *erroringSource) Close() error                      { return nil }

func TestBuildFilterExpr_VRChatMode(t *testing.T) {
	f := BuildFilterExpr(config.ModeVRChat)
	assert.True(t, f.matches("udp", 5055))
	assert.True(t, f.matches("udp", 27050))
	assert.True(t, f.matches("tcp", 443))
	assert.False(t, f.matches("udp", 9999))
}

func TestBuildFilterExpr_UniversalMode(t *testing.T) {
	f := BuildFilterExpr(config.ModeUniversal)
	assert.True(t, f.matches("udp", 1))
	assert.True(t, f.matches("tcp", 1))
}

func TestBuildFilterExpr_CustomMode(t *testing.T) {
	f := BuildFilterExpr(config.ModeCustom)
	assert.True(t, f.matches("udp", 1))
	assert.False(t, f.matches("tcp", 1))
}
