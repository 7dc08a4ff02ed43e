// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command netshieldd runs the netshield core: the privileged
// interceptor and the unprivileged analyzer, joined by the in-process
// IPC fabric, sharing a single OS process (spec.md §1, §5). Flag
// parsing, HCL config loading, and a startup banner are explicitly out
// of scope (spec.md §1) — this binary wires config.Default() and runs
// in the foreground until interrupted.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netshield.dev/netshield/internal/analyzer"
	"netshield.dev/netshield/internal/auditlog"
	"netshield.dev/netshield/internal/config"
	"netshield.dev/netshield/internal/intel"
	"netshield.dev/netshield/internal/interceptor"
	"netshield.dev/netshield/internal/ipc"
	"netshield.dev/netshield/internal/logging"
	"netshield.dev/netshield/internal/ratelimit"
	"netshield.dev/netshield/internal/supervisor"
)

func main() {
	cfg := config.Default()
	if errs := cfg.Validate(); errs.HasErrors() {
		fmt.Fprintln(os.Stderr, "netshieldd: invalid configuration:", errs.Error())
		os.Exit(1)
	}

	logger := logging.New(logging.DefaultConfig())

	resolver, err := buildResolver(cfg, logger)
	if err != nil {
		logger.Error("failed to open geoip databases, falling back to stub resolver", "error", err)
		resolver = intel.StubResolver{}
	}

	var signer *auditlog.Signer
	if cfg.LogIntegrity {
		key := os.Getenv(auditlog.SecretEnvVar)
		if key == "" {
			logger.Warn("log_integrity enabled but " + auditlog.SecretEnvVar + " is unset, integrity signing disabled")
		}
		signer = auditlog.NewSigner(key)
	} else {
		signer = auditlog.NewSigner("")
	}

	audit, err := auditlog.NewSink(cfg.LogDir, signer, logger)
	if err != nil {
		logger.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer audit.Stop()

	cache := intel.NewCache(cfg.CacheMaxSize, cfg.CacheTTL())
	scorer := intel.NewScorerConfig(cfg.HighRiskCountries, cfg.SuspiciousASNKeywords)
	worker := intel.NewWorker(1000, cfg.WhoisRateLimit, cache, resolver, scorer, logger)
	go worker.Run()
	defer worker.Stop()

	interceptorSide, analyzerSide := ipc.NewInProcessLink(logger)

	source, err := interceptor.NewNFQueueSource(uint16(cfg.NFQueueNum), interceptor.BuildFilterExpr(cfg.Mode))
	if err != nil {
		logger.Error("failed to open kernel packet source", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	bucket := ratelimit.NewBucket(cfg.TokenBucketRateBytesPerSec(), cfg.TokenBucketCapacityBytes())
	window := ratelimit.NewWindow(time.Second)
	ic := interceptor.New(source, bucket, window, interceptorSide.Command, logger)

	a := analyzer.New(cfg, cache, worker, audit, analyzerSide, logger)

	sup := supervisor.New(cfg.StateDir, supervisor.DefaultConfig())
	stopStability := make(chan struct{})
	sup.StartStabilityTimer(stopStability)
	defer close(stopStability)

	go interceptor.RunMetadataSender(ic, interceptorSide.Metadata)
	go func() {
		if err := ic.RunCommands(); err != nil {
			logger.Warn("interceptor command loop exited", "error", err)
		}
	}()
	go func() {
		if err := a.RunDescriptors(); err != nil {
			logger.Warn("analyzer descriptor loop exited", "error", err)
		}
	}()
	go a.RunEnrichmentDriver()
	go a.RunCleanupTask()
	go a.RunTrafficSampleTask()
	go a.RunWatchlistTask()

	interceptorDone := make(chan error, 1)
	go func() { interceptorDone <- ic.Run() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown requested")
		_ = sup.RecordExit(false, true, "shutdown requested")
	case err := <-interceptorDone:
		logger.Error("interceptor exited unexpectedly", "error", err)
		_ = sup.RecordExit(false, false, err.Error())
		if sup.ShouldEnterPassthrough() {
			logger.Error("too many interceptor crashes within the crash window")
		}
	}

	a.Stop()
	ended := time.Now()
	summary := supervisor.BuildSummary(ic, a, ended)
	logSummary(logger, summary)
}

func buildResolver(cfg *config.Config, logger *logging.Logger) (intel.Resolver, error) {
	if cfg.GeoIPCityDB == "" {
		logger.Info("no geoip_city_db configured, enrichment will rely on traffic behavior alone")
		return intel.StubResolver{}, nil
	}
	return intel.NewGeoIPResolver(cfg.GeoIPCityDB, cfg.GeoIPASNDB)
}

func logSummary(logger *logging.Logger, summary supervisor.Summary) {
	body, err := json.Marshal(summary)
	if err != nil {
		logger.Error("failed to marshal session summary", "error", err)
		return
	}
	logger.Info("session summary", "summary", string(body))
}
