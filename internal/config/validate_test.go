// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	assert.False(t, errs.HasErrors(), "default config should validate: %v", errs)
}

func TestValidateBandwidthBounds(t *testing.T) {
	cfg := Default()
	cfg.MaxBandwidthMbps = 0
	errs := cfg.Validate()
	assert.True(t, errs.HasErrors())

	cfg = Default()
	cfg.MaxBandwidthMbps = 1001
	errs = cfg.Validate()
	assert.True(t, errs.HasErrors())
}

func TestValidateBurstNotExceedBandwidth(t *testing.T) {
	cfg := Default()
	cfg.MaxBandwidthMbps = 5
	cfg.BurstSizeMB = 10
	errs := cfg.Validate()
	assert.True(t, errs.HasErrors())
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Mode = "exec"
	errs := cfg.Validate()
	assert.True(t, errs.HasErrors())
}

func TestValidateWatchlistThresholdBounds(t *testing.T) {
	cfg := Default()
	cfg.WatchlistThreshold = 150
	errs := cfg.Validate()
	assert.True(t, errs.HasErrors())
}

func TestTokenBucketConversions(t *testing.T) {
	cfg := Default()
	cfg.MaxBandwidthMbps = 8
	cfg.BurstSizeMB = 1
	assert.Equal(t, float64(1_000_000), cfg.TokenBucketRateBytesPerSec())
	assert.Equal(t, float64(1_048_576), cfg.TokenBucketCapacityBytes())
}
