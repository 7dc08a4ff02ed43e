// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config defines the options netshield's core consumes. Loading an
// HCL file from disk, parsing command-line flags and printing a startup
// banner are all out of scope here (spec.md §1) — this package only owns
// the Config struct, its defaults, and validation. Load is provided as the
// thin boundary a CLI-layer stub can call; it is not itself part of the
// core's contract.
package config

import "time"

// Mode selects the interceptor's kernel filter expression (spec.md §4.8).
type Mode string

const (
	ModeVRChat    Mode = "vrchat"
	ModeUniversal Mode = "universal"
	ModeCustom    Mode = "custom"
)

// Config is the full set of named options the core consumes (spec.md §6).
type Config struct {
	// Mode selects the interceptor's filter expression.
	// @enum: vrchat, universal, custom
	// @default: "universal"
	Mode Mode `hcl:"mode,optional" json:"mode,omitempty"`

	// MaxBandwidthMbps is the token-bucket refill rate, in megabits per
	// second. Must lie in [1, 1000].
	// @default: 100
	MaxBandwidthMbps float64 `hcl:"max_bandwidth_mbps,optional" json:"max_bandwidth_mbps,omitempty"`

	// BurstSizeMB is the token-bucket capacity, in megabytes. Must lie
	// in [1, 100] and must not exceed MaxBandwidthMbps.
	// @default: 10
	BurstSizeMB float64 `hcl:"burst_size_mb,optional" json:"burst_size_mb,omitempty"`

	// WatchlistThreshold is the score cutoff, 0-100, for watchlist
	// inclusion in the periodic audit snapshot.
	// @default: 70
	WatchlistThreshold int `hcl:"watchlist_threshold,optional" json:"watchlist_threshold,omitempty"`

	// HighRiskCountries is the set of ISO country codes that trigger
	// the scorer's high-risk-country rule.
	HighRiskCountries []string `hcl:"high_risk_countries,optional" json:"high_risk_countries,omitempty"`

	// SuspiciousASNKeywords is the set of lower-cased substrings that
	// trigger the scorer's suspicious-ASN rule when found in an ASN
	// description.
	SuspiciousASNKeywords []string `hcl:"suspicious_asn_keywords,optional" json:"suspicious_asn_keywords,omitempty"`

	// CacheMaxSize is the LRU profile cache's entry capacity.
	// @default: 50000
	CacheMaxSize int `hcl:"cache_max_size,optional" json:"cache_max_size,omitempty"`

	// CacheTTLHours is the per-entry TTL applied by the profile cache.
	// @default: 24
	CacheTTLHours float64 `hcl:"cache_ttl_hours,optional" json:"cache_ttl_hours,omitempty"`

	// WhoisRateLimit is the enrichment worker's lookup rate, requests
	// per second.
	// @default: 5
	WhoisRateLimit float64 `hcl:"whois_rate_limit,optional" json:"whois_rate_limit,omitempty"`

	// LogDir is the directory the audit log sink writes its three
	// files into.
	// @default: "/var/log/netshield"
	LogDir string `hcl:"log_dir,optional" json:"log_dir,omitempty"`

	// LogIntegrity enables HMAC-SHA-256 signing of audit records.
	// Requires NETSHIELD_LOG_SECRET in the environment; absent,
	// integrity degrades to disabled with a warning.
	// @default: false
	LogIntegrity bool `hcl:"log_integrity,optional" json:"log_integrity,omitempty"`

	// HighRateThresholdMbps is the analyzer's quick-score rate
	// threshold (spec.md §4.9 step 4).
	// @default: 50
	HighRateThresholdMbps float64 `hcl:"high_rate_threshold_mbps,optional" json:"high_rate_threshold_mbps,omitempty"`

	// ThrottleScoreThreshold is the score at or above which the
	// analyzer issues a throttle_ip command.
	// @default: 70
	ThrottleScoreThreshold int `hcl:"throttle_score_threshold,optional" json:"throttle_score_threshold,omitempty"`

	// GeoIPCityDB is the path to a MaxMind-format City database. Empty
	// falls back to StubResolver (no enrichment data, scoring relies on
	// live traffic behavior alone).
	GeoIPCityDB string `hcl:"geoip_city_db,optional" json:"geoip_city_db,omitempty"`

	// GeoIPASNDB is the path to a MaxMind-format ASN database. Ignored
	// if GeoIPCityDB is empty.
	GeoIPASNDB string `hcl:"geoip_asn_db,optional" json:"geoip_asn_db,omitempty"`

	// NFQueueNum is the nfqueue queue number the interceptor binds
	// (spec.md §4.8). Must match whatever iptables/nftables rule
	// delivers packets to this process.
	// @default: 0
	NFQueueNum int `hcl:"nfqueue_num,optional" json:"nfqueue_num,omitempty"`

	// StateDir holds the supervisor's persisted crash history.
	// @default: "/var/lib/netshield"
	StateDir string `hcl:"state_dir,optional" json:"state_dir,omitempty"`
}

// Default returns Config populated with the defaults named in spec.md §6.
func Default() *Config {
	return &Config{
		Mode:                   ModeUniversal,
		MaxBandwidthMbps:       100,
		BurstSizeMB:            10,
		WatchlistThreshold:     70,
		HighRiskCountries:      []string{},
		SuspiciousASNKeywords:  []string{"bulletproof", "hosting", "offshore"},
		CacheMaxSize:           50000,
		CacheTTLHours:          24,
		WhoisRateLimit:         5,
		LogDir:                 "/var/log/netshield",
		LogIntegrity:           false,
		HighRateThresholdMbps:  50,
		ThrottleScoreThreshold: 70,
		NFQueueNum:             0,
		StateDir:               "/var/lib/netshield",
	}
}

// TokenBucketRateBytesPerSec converts MaxBandwidthMbps into the bytes/sec
// rate the token bucket operates in.
func (c *Config) TokenBucketRateBytesPerSec() float64 {
	return c.MaxBandwidthMbps * 1_000_000 / 8
}

// TokenBucketCapacityBytes converts BurstSizeMB into the token bucket's
// byte capacity.
func (c *Config) TokenBucketCapacityBytes() float64 {
	return c.BurstSizeMB * 1_048_576
}

// CacheTTL converts CacheTTLHours into a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours * float64(time.Hour))
}
