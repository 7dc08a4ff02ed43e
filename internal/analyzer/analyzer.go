// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package analyzer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"netshield.dev/netshield/internal/auditlog"
	"netshield.dev/netshield/internal/config"
	"netshield.dev/netshield/internal/intel"
	"netshield.dev/netshield/internal/ipc"
	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/ratelimit"
)

const (
	// enrichmentScanThreshold is the minimum packet count before a
	// tracker becomes eligible for enrichment (spec.md §4.9 task a).
	enrichmentScanThreshold = 100
	// enrichmentBatchSize bounds how many trackers are enqueued per
	// enrichment-driver cycle.
	enrichmentBatchSize = 10
	// cleanupInterval is the production cadence of the reaping task.
	cleanupInterval = 5 * time.Minute
	// enrichmentInterval is the production cadence of the scan task.
	enrichmentInterval = 30 * time.Second
	// inactivityThreshold is how long a tracker may go unobserved before
	// the cleanup task reaps it.
	inactivityThreshold = time.Hour
	// floodModeFraction is the fraction of the configured bandwidth
	// ceiling above which the session is considered to be under flood.
	floodModeFraction = 0.8
	// trafficSampleInterval is the production cadence of the traffic
	// CSV sampling task.
	trafficSampleInterval = 30 * time.Second
	// watchlistInterval is the production cadence of the watchlist
	// snapshot task.
	watchlistInterval = 5 * time.Minute
)

// Analyzer implements spec.md §4.9: it maintains the tracker table, the
// overall traffic window, the intelligence cache, the audit log, and
// drives the IPC client the interceptor exposes to it.
type Analyzer struct {
	cfg      *config.Config
	trackers *trackerTable
	window   *ratelimit.Window
	cache    *intel.Cache
	scorer   intel.ScorerConfig
	worker   *intel.Worker
	audit    *auditlog.Sink
	codec    ipc.Link
	logger   *logging.Logger

	uniqueIPs sync.Map // string -> struct{}, for session summary unique-IP count
	throttles uint64

	sessionStart time.Time
	totalBytes   uint64
	totalPackets uint64

	stop chan struct{}
}

// New builds an Analyzer wired to the given collaborators. codec is
// this side's Link (its Metadata channel is read, its Command channel
// is written).
func New(cfg *config.Config, cache *intel.Cache, worker *intel.Worker, audit *auditlog.Sink, codec ipc.Link, logger *logging.Logger) *Analyzer {
	return &Analyzer{
		cfg:          cfg,
		trackers:     newTrackerTable(),
		window:       ratelimit.NewWindow(time.Second),
		cache:        cache,
		scorer:       intel.NewScorerConfig(cfg.HighRiskCountries, cfg.SuspiciousASNKeywords),
		worker:       worker,
		audit:        audit,
		codec:        codec,
		logger:       logger.WithComponent("analyzer"),
		sessionStart: time.Now(),
		stop:         make(chan struct{}),
	}
}

// RunDescriptors drives the packet-descriptor loop until the metadata
// channel reports peer unavailability.
func (a *Analyzer) RunDescriptors() error {
	return ipc.RunDescriptorReader(a.codec.Metadata, a.logger, func(d ipc.PacketDescriptor) {
		a.handleDescriptor(d, time.Now())
	})
}

func (a *Analyzer) handleDescriptor(d ipc.PacketDescriptor, now time.Time) {
	if !d.Validate() {
		return
	}
	if !intel.IsPublic(d.SourceIP) {
		// Reserved/private/loopback sources never create a tracker or
		// profile (spec.md §8 boundary behavior).
		return
	}

	tracker := a.trackers.getOrCreate(d.SourceIP, now)
	tracker.Observe(now, uint64(d.Length))

	atomic.AddUint64(&a.totalBytes, uint64(d.Length))
	atomic.AddUint64(&a.totalPackets, 1)
	a.uniqueIPs.Store(d.SourceIP, struct{}{})
	a.window.AddSample(uint64(d.Length))

	cachedScore := 0
	if profile, ok := a.cache.Get(d.SourceIP); ok {
		cachedScore = profile.ThreatScore
	} else {
		profile = intel.NewProfile(d.SourceIP, now)
		a.cache.Put(d.SourceIP, profile)
		a.worker.Enqueue(d.SourceIP)
	}

	score := ComputeQuickScore(tracker, now, QuickScoreInputs{
		HighRateThresholdMbps: a.cfg.HighRateThresholdMbps,
		CachedProfileScore:    cachedScore,
	})
	tracker.SetQuickScore(score)

	if score >= a.cfg.ThrottleScoreThreshold && !tracker.EverThrottled() {
		a.throttle(d.SourceIP, score, now)
	}
}

func (a *Analyzer) throttle(ip string, score int, now time.Time) {
	t := a.trackers.getOrCreate(ip, now)
	t.MarkThrottled()
	atomic.AddUint64(&a.throttles, 1)

	cmd := ipc.Command{Tag: ipc.CommandThrottleIP, TargetIP: ip, TimestampUnix: float64(now.Unix())}
	if err := a.codec.Command.WriteCommand(cmd); err != nil {
		a.logger.Warn("failed to send throttle command", "ip", ip, "error", err)
	}

	a.audit.EnqueueEvent(auditlog.Event{
		Timestamp: now, EventType: "high_score", IP: ip, ThreatScore: score,
		Details: map[string]any{"packet_count": t.PacketCount()},
	})
}

// RunEnrichmentOnce performs one enrichment-driver cycle (spec.md §4.9
// task a): scan trackers with packet_count > 100 and enqueue up to
// enrichmentBatchSize into the enrichment worker, yielding between
// items so the scan never starves the descriptor loop.
func (a *Analyzer) RunEnrichmentOnce() {
	enqueued := 0
	for _, t := range a.trackers.snapshot() {
		if enqueued >= enrichmentBatchSize {
			return
		}
		if t.PacketCount() <= enrichmentScanThreshold {
			continue
		}
		if a.worker.Enqueue(t.IP) {
			enqueued++
		}
		runtime.Gosched()
	}
}

// RunCleanupOnce reaps trackers inactive for more than one hour as of
// now (spec.md §4.9 task b).
func (a *Analyzer) RunCleanupOnce(now time.Time) int {
	reaped := 0
	for _, t := range a.trackers.snapshot() {
		if t.Inactive(now, inactivityThreshold) {
			a.trackers.delete(t.IP)
			reaped++
		}
	}
	return reaped
}

// RunEnrichmentDriver runs RunEnrichmentOnce on a fixed cadence until
// Stop is called.
func (a *Analyzer) RunEnrichmentDriver() {
	ticker := time.NewTicker(enrichmentInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.RunEnrichmentOnce()
		}
	}
}

// RunCleanupTask runs RunCleanupOnce on a fixed cadence until Stop is
// called.
func (a *Analyzer) RunCleanupTask() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case tick := <-ticker.C:
			a.RunCleanupOnce(tick)
		}
	}
}

// RunTrafficSampleOnce emits one traffic sample per live tracker to the
// audit log (spec.md §4.6 traffic CSV). Country/ASN/network fields come
// from the tracker's cached profile, if enrichment has completed.
func (a *Analyzer) RunTrafficSampleOnce(now time.Time) {
	for _, t := range a.trackers.snapshot() {
		var country, asn, network string
		var threatScore int
		if profile, ok := a.cache.Get(t.IP); ok {
			country, asn, network = profile.Country, profile.ASN, profile.NetworkName
			threatScore = profile.ThreatScore
		}
		a.audit.EnqueueTraffic(auditlog.TrafficSample{
			Timestamp:   now,
			IP:          t.IP,
			Country:     country,
			ASN:         asn,
			Network:     network,
			SpeedMbps:   t.RecentRateMbps(now) / 8, // tracker rate is Mb/s, file column is MB/s
			Throttled:   t.EverThrottled(),
			ThreatScore: threatScore,
		})
	}
}

// RunTrafficSampleTask runs RunTrafficSampleOnce on a fixed cadence
// until Stop is called.
func (a *Analyzer) RunTrafficSampleTask() {
	ticker := time.NewTicker(trafficSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case tick := <-ticker.C:
			a.RunTrafficSampleOnce(tick)
		}
	}
}

// RunWatchlistOnce snapshots every cached profile whose threat score
// meets cfg.WatchlistThreshold into the watchlist file (SPEC_FULL.md
// supplemented features: `>=` threshold gate).
func (a *Analyzer) RunWatchlistOnce(now time.Time) error {
	var entries []auditlog.WatchlistEntry
	for _, p := range a.cache.Values() {
		if p.ThreatScore < a.cfg.WatchlistThreshold {
			continue
		}
		entries = append(entries, auditlog.WatchlistEntry{
			IP:           p.IP,
			Country:      p.Country,
			ASN:          p.ASN,
			ASNDesc:      p.ASNDesc,
			NetworkName:  p.NetworkName,
			ThreatScore:  p.ThreatScore,
			Reasons:      p.Reasons,
			MaxSpeedMbps: p.MaxSpeedMbps,
		})
	}
	return a.audit.SaveWatchlist(entries)
}

// RunWatchlistTask runs RunWatchlistOnce on a fixed cadence until Stop
// is called.
func (a *Analyzer) RunWatchlistTask() {
	ticker := time.NewTicker(watchlistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case tick := <-ticker.C:
			if err := a.RunWatchlistOnce(tick); err != nil {
				a.logger.Warn("failed to save watchlist snapshot", "error", err)
			}
		}
	}
}

// Stop signals the background tasks to exit.
func (a *Analyzer) Stop() {
	close(a.stop)
}

// TrackerCount returns the number of live trackers.
func (a *Analyzer) TrackerCount() int { return a.trackers.len() }

// ThrottleCount returns how many throttle commands have been issued
// this session.
func (a *Analyzer) ThrottleCount() uint64 { return atomic.LoadUint64(&a.throttles) }

// UniqueIPCount returns the number of distinct source IPs observed this
// session.
func (a *Analyzer) UniqueIPCount() int {
	n := 0
	a.uniqueIPs.Range(func(_, _ any) bool { n++; return true })
	return n
}

// FloodMode reports whether the current windowed throughput exceeds
// floodModeFraction of the configured bandwidth ceiling (SPEC_FULL.md
// supplemented flood-mode derivation). Window.SpeedMBps reports
// megabytes/sec; MaxBandwidthMbps is megabits/sec, so the window
// reading is converted to megabits/sec before comparing.
func (a *Analyzer) FloodMode() bool {
	observedMbps := a.window.SpeedMBps() * 8
	return observedMbps > a.cfg.MaxBandwidthMbps*floodModeFraction
}

// TotalBytes and TotalPackets expose the running session totals used by
// the session summary.
func (a *Analyzer) TotalBytes() uint64   { return atomic.LoadUint64(&a.totalBytes) }
func (a *Analyzer) TotalPackets() uint64 { return atomic.LoadUint64(&a.totalPackets) }

// SessionStart returns the time the analyzer began this session.
func (a *Analyzer) SessionStart() time.Time { return a.sessionStart }
