// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package auditlog

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netshield.dev/netshield/internal/logging"
)

func testLogger() *logging.Logger { return logging.New(logging.DefaultConfig()) }

func TestSink_EventsAreAppendedAsJSONLines(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, nil, testLogger())
	require.NoError(t, err)

	sink.EnqueueEvent(Event{EventType: "throttle", IP: "203.0.113.5", ThreatScore: 80})
	sink.EnqueueEvent(Event{EventType: "throttle", IP: "203.0.113.6", ThreatScore: 90})
	sink.Flush()
	sink.Stop()

	f, err := os.Open(filepath.Join(dir, eventsFile))
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var e Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &e))
	assert.Equal(t, "throttle", e.EventType)
	assert.Equal(t, "203.0.113.5", e.IP)
}

func TestSink_TrafficFileHasFixedHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, nil, testLogger())
	require.NoError(t, err)

	sink.EnqueueTraffic(TrafficSample{IP: "198.51.100.1", Country: "US", SpeedMbps: 12.5, Throttled: true, ThreatScore: 55})
	sink.Flush()
	sink.Stop()

	f, err := os.Open(filepath.Join(dir, trafficFile))
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Timestamp", "IP", "Country", "ASN", "Network", "Speed_MBps", "Throttled", "ThreatScore", "Signature"}, records[0])
	assert.Equal(t, "198.51.100.1", records[1][1])
	assert.Equal(t, "Yes", records[1][6])
}

func TestSink_ReopeningDoesNotDuplicateHeader(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, nil, testLogger())
	require.NoError(t, err)
	sink.EnqueueTraffic(TrafficSample{IP: "198.51.100.1"})
	sink.Flush()
	sink.Stop()

	sink2, err := NewSink(dir, nil, testLogger())
	require.NoError(t, err)
	sink2.EnqueueTraffic(TrafficSample{IP: "198.51.100.2"})
	sink2.Flush()
	sink2.Stop()

	f, err := os.Open(filepath.Join(dir, trafficFile))
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3, "exactly one header row plus two data rows")
}

func TestSink_QueueFullDropsSilently(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, nil, testLogger())
	require.NoError(t, err)
	defer sink.Stop()

	for i := 0; i < queueCapacity+10; i++ {
		sink.EnqueueEvent(Event{EventType: "probe"})
	}
	assert.Greater(t, sink.Dropped(), uint64(0))
}

func TestSink_IntegritySignaturesVerify(t *testing.T) {
	dir := t.TempDir()
	signer := NewSigner("test-secret-key")
	sink, err := NewSink(dir, signer, testLogger())
	require.NoError(t, err)

	sink.EnqueueEvent(Event{EventType: "throttle", IP: "203.0.113.5"})
	sink.Flush()
	sink.Stop()

	f, err := os.Open(filepath.Join(dir, eventsFile))
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var e Event
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
	require.NotEmpty(t, e.Sig)

	sig := e.Sig
	e.Sig = ""
	body, err := json.Marshal(e)
	require.NoError(t, err)
	assert.True(t, signer.Verify(body, sig))
}

func TestWatchlist_SaveAndLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, nil, testLogger())
	require.NoError(t, err)
	defer sink.Stop()

	entries := []WatchlistEntry{
		{IP: "203.0.113.5", Country: "KP", ThreatScore: 95, Reasons: []string{"high-risk country"}},
	}
	require.NoError(t, sink.SaveWatchlist(entries))

	loaded, err := sink.LoadWatchlist()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "203.0.113.5", loaded[0].IP)
	assert.Equal(t, 95, loaded[0].ThreatScore)
}

func TestWatchlist_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, nil, testLogger())
	require.NoError(t, err)
	defer sink.Stop()

	loaded, err := sink.LoadWatchlist()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestWatchlist_TamperedSignatureFailsVerification(t *testing.T) {
	dir := t.TempDir()
	signer := NewSigner("test-secret-key")
	sink, err := NewSink(dir, signer, testLogger())
	require.NoError(t, err)
	defer sink.Stop()

	entries := []WatchlistEntry{{IP: "203.0.113.5", ThreatScore: 95}}
	require.NoError(t, sink.SaveWatchlist(entries))

	path := filepath.Join(dir, watchlistFile)
	body, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk []WatchlistEntry
	require.NoError(t, json.Unmarshal(body, &onDisk))
	onDisk[0].ThreatScore = 10
	tampered, err := json.MarshalIndent(onDisk, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, tampered, 0o640))

	_, err = sink.LoadWatchlist()
	assert.Error(t, err)
}

func TestSigner_DisabledWhenKeyEmpty(t *testing.T) {
	s := NewSigner("")
	assert.False(t, s.Enabled())
	assert.Equal(t, "", s.Sign([]byte("anything")))
	assert.True(t, s.Verify([]byte("anything"), ""))
}

func TestSigner_SignReturnsSixteenCharPrefix(t *testing.T) {
	s := NewSigner("test-secret-key")
	sig := s.Sign([]byte("some record body"))
	assert.Len(t, sig, 16)
	assert.True(t, s.Verify([]byte("some record body"), sig))
	assert.False(t, s.Verify([]byte("some record body"), sig+"00"))
	assert.False(t, s.Verify([]byte("tampered body"), sig))
}
