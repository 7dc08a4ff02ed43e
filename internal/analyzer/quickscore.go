// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package analyzer

import "time"

// ThrottleThreshold is the default quick score at or above which a
// throttle command is issued (spec.md §4.9 step 5). The analyzer itself
// compares against config.Config.ThrottleScoreThreshold, whose default is
// the same value, and does not read this constant.
const ThrottleThreshold = 70

// QuickScoreInputs bundles the optional contributions to a tracker's
// quick threat score beyond its own recent-rate and throttle history.
type QuickScoreInputs struct {
	HighRateThresholdMbps float64
	CachedProfileScore    int  // 0 if no cached intelligence profile exists
	HasMLScore            bool
	MLAnomalyScore        float64 // already scaled 0..30 when HasMLScore is true
}

// ComputeQuickScore implements spec.md §4.9 step 4: a fast, purely
// local score computed on every packet descriptor, independent of the
// (much slower) enrichment-backed Score in internal/intel.
func ComputeQuickScore(t *Tracker, now time.Time, in QuickScoreInputs) int {
	score := 0

	rate := t.RecentRateMbps(now)
	switch {
	case in.HighRateThresholdMbps > 0 && rate > in.HighRateThresholdMbps:
		score += 40
	case in.HighRateThresholdMbps > 0 && rate > in.HighRateThresholdMbps/2:
		score += 20
	}

	if t.EverThrottled() {
		score += 20
	}

	score += in.CachedProfileScore

	if in.HasMLScore {
		ml := in.MLAnomalyScore
		if ml < 0 {
			ml = 0
		}
		if ml > 30 {
			ml = 30
		}
		score += int(ml)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
