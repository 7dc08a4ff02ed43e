// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation failures. A nil or
// empty ValidationErrors is a valid, passing configuration.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors reports whether any validation failure was recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks every option against the bounds named in spec.md §6 and
// returns the accumulated set of failures. A non-empty result means the
// process must exit with a diagnostic before any component initializes
// (spec.md §7, ConfigInvalid).
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	switch c.Mode {
	case ModeVRChat, ModeUniversal, ModeCustom:
	default:
		errs = append(errs, ValidationError{"mode", fmt.Sprintf("unrecognized mode %q", c.Mode)})
	}

	if c.MaxBandwidthMbps < 1 || c.MaxBandwidthMbps > 1000 {
		errs = append(errs, ValidationError{"max_bandwidth_mbps", "must lie in [1, 1000]"})
	}
	if c.BurstSizeMB < 1 || c.BurstSizeMB > 100 {
		errs = append(errs, ValidationError{"burst_size_mb", "must lie in [1, 100]"})
	}
	if c.BurstSizeMB > c.MaxBandwidthMbps {
		errs = append(errs, ValidationError{"burst_size_mb", "must not exceed max_bandwidth_mbps"})
	}
	if c.WatchlistThreshold < 0 || c.WatchlistThreshold > 100 {
		errs = append(errs, ValidationError{"watchlist_threshold", "must lie in [0, 100]"})
	}
	if c.CacheMaxSize <= 0 {
		errs = append(errs, ValidationError{"cache_max_size", "must be > 0"})
	}
	if c.CacheTTLHours < 0 {
		errs = append(errs, ValidationError{"cache_ttl_hours", "must be >= 0"})
	}
	if c.WhoisRateLimit <= 0 {
		errs = append(errs, ValidationError{"whois_rate_limit", "must be > 0"})
	}
	if c.LogDir == "" {
		errs = append(errs, ValidationError{"log_dir", "must not be empty"})
	}
	if c.ThrottleScoreThreshold < 0 || c.ThrottleScoreThreshold > 100 {
		errs = append(errs, ValidationError{"throttle_score_threshold", "must lie in [0, 100]"})
	}

	return errs
}
