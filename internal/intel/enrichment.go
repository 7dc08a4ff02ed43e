// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package intel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/shielderr"
)

const (
	// EnqueueTimeout bounds how long the rate limiter will wait for a
	// token before an item is skipped (spec.md §4.5).
	EnqueueTimeout = 2 * time.Second
	// pollInterval bounds how long Run waits on an empty queue before
	// re-checking the stop flag (spec.md §5).
	pollInterval = 500 * time.Millisecond
)

// Worker is the single background task that drains a bounded FIFO of IP
// literals, rate-limits lookups, and updates the cache through its API
// (spec.md §4.5). A Worker keeps no Profile reference between queue
// items: for each item it fetches the profile through cache.Get before
// the lookup and writes it back through cache.Put after it, so the
// cache's own lock is the only synchronization it relies on.
type Worker struct {
	queue    chan string
	limiter  *rate.Limiter
	cache    *Cache
	resolver Resolver
	scorer   ScorerConfig
	logger   *logging.Logger

	stopped chan struct{}
	stop    chan struct{}
}

// NewWorker constructs a Worker. ratePerSec is the configured
// whois_rate_limit option; queueCapacity must be at least 1000 per
// spec.md §4.5.
func NewWorker(queueCapacity int, ratePerSec float64, cache *Cache, resolver Resolver, scorer ScorerConfig, logger *logging.Logger) *Worker {
	if queueCapacity < 1000 {
		queueCapacity = 1000
	}
	return &Worker{
		queue:    make(chan string, queueCapacity),
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
		cache:    cache,
		resolver: resolver,
		scorer:   scorer,
		logger:   logger.WithComponent("enrichment"),
		stopped:  make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

// Enqueue offers ip to the lookup queue. It never blocks: if the queue
// is full, the item is silently dropped (spec.md §4.5, §7 QueueFull).
func (w *Worker) Enqueue(ip string) bool {
	select {
	case w.queue <- ip:
		return true
	default:
		return false
	}
}

// Run drains the queue until Stop is called. It must run on its own
// goroutine. An Unexpected error out of process terminates Run rather
// than being logged and ignored (spec.md §4.5/§7: a worker never
// swallows Unexpected).
func (w *Worker) Run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.stop:
			return
		case ip := <-w.queue:
			if err := w.process(ip); err != nil {
				w.logger.Error("enrichment worker terminating on unexpected error", "ip", ip, "error", err)
				return
			}
		case <-time.After(pollInterval):
		}
	}
}

// Stop requests Run to return and blocks until it has, or until
// EnqueueTimeout elapses, whichever comes first — cooperative shutdown
// per spec.md §5.
func (w *Worker) Stop() {
	close(w.stop)
	select {
	case <-w.stopped:
	case <-time.After(EnqueueTimeout):
	}
}

// process looks up ip and updates its cached profile. It returns a
// non-nil error only for a failure outside the EnrichmentTransport/
// EnrichmentData taxonomy (shielderr.Unexpected), which Run treats as
// fatal to the worker rather than logging and continuing.
func (w *Worker) process(ip string) error {
	ctx, cancel := context.WithTimeout(context.Background(), EnqueueTimeout)
	defer cancel()

	if err := w.limiter.Wait(ctx); err != nil {
		w.logger.Warn("rate limiter timeout, skipping lookup", "ip", ip)
		return nil
	}

	profile, ok := w.cache.Get(ip)
	if !ok {
		return nil
	}

	addr := net.ParseIP(ip)
	if addr == nil {
		return nil
	}

	lookup, err := w.resolver.Resolve(addr)
	switch {
	case err == nil:
		profile.ApplyEnrichment(lookup.Country, lookup.ASN, lookup.ASNDesc, lookup.NetworkName, lookup.NetworkCIDR, lookup.AbuseContact)
	case errors.Is(err, shielderr.EnrichmentTransport):
		profile.ApplyEnrichment("", "", "", "", "", "")
		profile.Country = "Lookup Failed"
		w.logger.Warn("enrichment transport error", "ip", ip, "error", err)
	case errors.Is(err, shielderr.EnrichmentData):
		w.logger.Warn("enrichment data error, profile left unchanged", "ip", ip, "error", err)
		w.cache.Put(ip, profile)
		return nil
	default:
		w.cache.Put(ip, profile)
		return fmt.Errorf("%w: %s", shielderr.Unexpected, err)
	}

	score, reasons := Score(profile, w.scorer)
	profile.ThreatScore = score
	profile.Reasons = reasons
	w.cache.Put(ip, profile)
	return nil
}

// MarkReserved sets a profile's country to "Reserved" without touching
// the enrichment queue, for IPs IsPublic has already excluded.
func MarkReserved(p *Profile) {
	p.Country = "Reserved"
}
