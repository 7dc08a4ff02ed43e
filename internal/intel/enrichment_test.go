// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package intel

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/shielderr"
)

type fakeResolver struct {
	lookup Lookup
	err    error
}

func (f fakeResolver) Resolve(ip net.IP) (Lookup, error) { return f.lookup, f.err }

func testLogger() *logging.Logger { return logging.New(logging.DefaultConfig()) }

func TestWorker_EnqueueDropsWhenFull(t *testing.T) {
	w := NewWorker(1000, 5, NewCache(10, time.Hour), StubResolver{}, testScorerConfig(), testLogger())
	for i := 0; i < 1000; i++ {
		assert.True(t, w.Enqueue("203.0.113.1"))
	}
	assert.False(t, w.Enqueue("203.0.113.2"), "queue at capacity must drop silently")
}

func TestWorker_SuccessfulLookupUpdatesProfile(t *testing.T) {
	cache := NewCache(10, time.Hour)
	ip := "8.8.8.8"
	p := NewProfile(ip, time.Now())
	cache.Put(ip, p)

	resolver := fakeResolver{lookup: Lookup{Country: "US", ASNDesc: "Google LLC"}}
	w := NewWorker(1000, 1000, cache, resolver, testScorerConfig(), testLogger())

	require.NoError(t, w.process(ip))

	got, ok := cache.Get(ip)
	require.True(t, ok)
	assert.Equal(t, "US", got.Country)
	assert.Equal(t, "Google LLC", got.ASNDesc)
}

func TestWorker_TransportErrorMarksLookupFailed(t *testing.T) {
	cache := NewCache(10, time.Hour)
	ip := "8.8.8.8"
	cache.Put(ip, NewProfile(ip, time.Now()))

	resolver := fakeResolver{err: errors.Join(shielderr.EnrichmentTransport, errors.New("dial timeout"))}
	w := NewWorker(1000, 1000, cache, resolver, testScorerConfig(), testLogger())
	require.NoError(t, w.process(ip))

	got, ok := cache.Get(ip)
	require.True(t, ok)
	assert.Equal(t, "Lookup Failed", got.Country)
}

func TestWorker_DataErrorLeavesProfileUnchanged(t *testing.T) {
	cache := NewCache(10, time.Hour)
	ip := "8.8.8.8"
	original := NewProfile(ip, time.Now())
	original.Country = "FR"
	cache.Put(ip, original)

	resolver := fakeResolver{err: errors.Join(shielderr.EnrichmentData, errors.New("malformed response"))}
	w := NewWorker(1000, 1000, cache, resolver, testScorerConfig(), testLogger())
	require.NoError(t, w.process(ip))

	got, ok := cache.Get(ip)
	require.True(t, ok)
	assert.Equal(t, "FR", got.Country)
}

func TestWorker_SkipsIPNotInCache(t *testing.T) {
	cache := NewCache(10, time.Hour)
	w := NewWorker(1000, 1000, cache, StubResolver{}, testScorerConfig(), testLogger())
	require.NoError(t, w.process("1.2.3.4")) // should not panic; nothing to update
}

func TestWorker_UnexpectedErrorIsNotSwallowed(t *testing.T) {
	cache := NewCache(10, time.Hour)
	ip := "8.8.8.8"
	cache.Put(ip, NewProfile(ip, time.Now()))

	resolver := fakeResolver{err: errors.New("some never-classified failure")}
	w := NewWorker(1000, 1000, cache, resolver, testScorerConfig(), testLogger())

	err := w.process(ip)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shielderr.Unexpected))
}

func TestWorker_RunTerminatesOnUnexpectedError(t *testing.T) {
	cache := NewCache(10, time.Hour)
	cache.Put("9.9.9.9", NewProfile("9.9.9.9", time.Now()))
	resolver := fakeResolver{err: errors.New("some never-classified failure")}
	w := NewWorker(1000, 1000, cache, resolver, testScorerConfig(), testLogger())

	go w.Run()
	w.Enqueue("9.9.9.9")

	select {
	case <-w.stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not terminate after an Unexpected error")
	}
}

func TestWorker_RunAndStop(t *testing.T) {
	cache := NewCache(10, time.Hour)
	w := NewWorker(1000, 1000, cache, StubResolver{}, testScorerConfig(), testLogger())

	go w.Run()
	w.Enqueue("1.1.1.1")
	time.Sleep(10 * time.Millisecond)
	w.Stop()
}
