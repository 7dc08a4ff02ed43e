// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package auditlog implements netshield's durable audit trail: three
// append-only files (JSON-lines events, CSV traffic samples, a JSON
// watchlist snapshot) written by a single background task draining a
// bounded queue, with optional HMAC-SHA-256 integrity signatures
// (spec.md §4.6). The audit log is the only place netshield performs
// durable I/O.
package auditlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"netshield.dev/netshield/internal/logging"
)

const (
	queueCapacity = 10_000
	eventsFile    = "events.jsonl"
	trafficFile   = "traffic.csv"
	watchlistFile = "watchlist.json"

	trafficHeader = "Timestamp,IP,Country,ASN,Network,Speed_MBps,Throttled,ThreatScore,Signature"
)

// Event is one structured audit record (spec.md §6 events file schema).
type Event struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   string         `json:"event_type"`
	IP          string         `json:"ip"`
	SpeedMbps   float64        `json:"speed_mbps"`
	ThreatScore int            `json:"threat_score"`
	Details     map[string]any `json:"details"`
	Sig         string         `json:"_sig,omitempty"`
}

// TrafficSample is one CSV row of the traffic file.
type TrafficSample struct {
	Timestamp   time.Time
	IP          string
	Country     string
	ASN         string
	Network     string
	SpeedMbps   float64
	Throttled   bool
	ThreatScore int
}

// WatchlistEntry is one element of the watchlist JSON array. It mirrors
// the subset of intel.Profile fields worth persisting independently of
// the cache's lifetime.
type WatchlistEntry struct {
	IP           string   `json:"ip"`
	Country      string   `json:"country"`
	ASN          string   `json:"asn"`
	ASNDesc      string   `json:"asn_description"`
	NetworkName  string   `json:"network_name"`
	ThreatScore  int      `json:"threat_score"`
	Reasons      []string `json:"reasons"`
	MaxSpeedMbps float64  `json:"max_speed_mbps"`
	Sig          string   `json:"_sig,omitempty"`
}

type queueItem struct {
	event   *Event
	traffic *TrafficSample
	ack     chan struct{}
}

// Sink is the async audit log. Enqueue calls never block; a single
// writer goroutine drains the queue and appends to disk. Watchlist saves
// bypass the queue and are written synchronously and atomically.
type Sink struct {
	dir    string
	signer *Signer
	logger *logging.Logger

	queue   chan queueItem
	done    chan struct{}
	drained chan struct{}

	mu        sync.Mutex
	eventsFh  *os.File
	trafficFh *os.File

	dropped uint64
}

// NewSink creates the audit directory (if needed) and opens the events
// and traffic files for append. dir must already be validated
// (config.Config.LogDir).
func NewSink(dir string, signer *Signer, logger *logging.Logger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("auditlog: create log dir: %w", err)
	}

	eventsFh, err := os.OpenFile(filepath.Join(dir, eventsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open events file: %w", err)
	}

	trafficPath := filepath.Join(dir, trafficFile)
	needsHeader := true
	if info, err := os.Stat(trafficPath); err == nil && info.Size() > 0 {
		needsHeader = false
	}
	trafficFh, err := os.OpenFile(trafficPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		eventsFh.Close()
		return nil, fmt.Errorf("auditlog: open traffic file: %w", err)
	}

	s := &Sink{
		dir:       dir,
		signer:    signer,
		logger:    logger.WithComponent("auditlog"),
		queue:     make(chan queueItem, queueCapacity),
		done:      make(chan struct{}),
		drained:   make(chan struct{}),
		eventsFh:  eventsFh,
		trafficFh: trafficFh,
	}
	if needsHeader {
		s.writeTrafficHeader()
	}
	go s.run()
	return s, nil
}

func (s *Sink) writeTrafficHeader() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.trafficFh, trafficHeader)
}

// EnqueueEvent offers an event for durable logging. It never blocks: a
// full queue silently drops the record (spec.md §7 QueueFull).
func (s *Sink) EnqueueEvent(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case s.queue <- queueItem{event: &e}:
	default:
		s.dropped++
		s.logger.Warn("audit queue full, dropping event", "event_type", e.EventType)
	}
}

// EnqueueTraffic offers a traffic sample for durable logging. Same
// non-blocking contract as EnqueueEvent.
func (s *Sink) EnqueueTraffic(t TrafficSample) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	select {
	case s.queue <- queueItem{traffic: &t}:
	default:
		s.dropped++
		s.logger.Warn("audit queue full, dropping traffic sample", "ip", t.IP)
	}
}

// Dropped returns the cumulative count of records dropped due to queue
// saturation.
func (s *Sink) Dropped() uint64 { return s.dropped }

func (s *Sink) run() {
	defer close(s.drained)
	for {
		select {
		case item := <-s.queue:
			s.writeItem(item)
		case <-s.done:
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case item := <-s.queue:
					s.writeItem(item)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) writeItem(item queueItem) {
	if item.ack != nil {
		close(item.ack)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case item.event != nil:
		s.writeEventLocked(item.event)
	case item.traffic != nil:
		s.writeTrafficLocked(item.traffic)
	}
}

func (s *Sink) writeEventLocked(e *Event) {
	e.Sig = ""
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("failed to marshal audit event", "error", err)
		return
	}
	if s.signer != nil && s.signer.Enabled() {
		sig := s.signer.Sign(body)
		e.Sig = sig
		body, err = json.Marshal(e)
		if err != nil {
			s.logger.Warn("failed to marshal signed audit event", "error", err)
			return
		}
	}
	fmt.Fprintln(s.eventsFh, string(body))
}

func (s *Sink) writeTrafficLocked(t *TrafficSample) {
	throttled := "No"
	if t.Throttled {
		throttled = "Yes"
	}
	row := []string{
		t.Timestamp.UTC().Format(time.RFC3339),
		t.IP,
		t.Country,
		t.ASN,
		t.Network,
		fmt.Sprintf("%.2f", t.SpeedMbps),
		throttled,
		fmt.Sprintf("%d", t.ThreatScore),
	}
	sig := ""
	if s.signer != nil && s.signer.Enabled() {
		sig = s.signer.Sign([]byte(csvRecordForSigning(row)))
	}
	row = append(row, sig)

	w := csv.NewWriter(s.trafficFh)
	if err := w.Write(row); err != nil {
		s.logger.Warn("failed to write traffic row", "error", err)
		return
	}
	w.Flush()
}

func csvRecordForSigning(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}

// Flush blocks until every currently-queued record has been written.
func (s *Sink) Flush() {
	// A request/response round-trip through the same queue guarantees
	// everything enqueued before Flush was called has been processed,
	// because the writer goroutine is single-consumer FIFO.
	ack := make(chan struct{})
	s.queue <- queueItem{ack: ack}
	<-ack
}

// Stop signals the writer to drain and exit, then closes the
// underlying files. It blocks until the writer has exited.
func (s *Sink) Stop() {
	close(s.done)
	<-s.drained
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsFh.Close()
	s.trafficFh.Close()
}
