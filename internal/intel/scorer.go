// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package intel

import (
	"fmt"
	"strings"
)

// ScorerConfig carries the configured high-risk country set and
// suspicious ASN keyword list the scorer's rules are parameterized on.
type ScorerConfig struct {
	HighRiskCountries     map[string]struct{}
	SuspiciousASNKeywords []string
}

// NewScorerConfig builds a ScorerConfig from the raw option lists in
// config.Config, lower-casing ASN keywords once so scoring itself never
// re-normalizes per call.
func NewScorerConfig(highRiskCountries, suspiciousASNKeywords []string) ScorerConfig {
	set := make(map[string]struct{}, len(highRiskCountries))
	for _, c := range highRiskCountries {
		set[strings.ToUpper(c)] = struct{}{}
	}
	keywords := make([]string, len(suspiciousASNKeywords))
	for i, k := range suspiciousASNKeywords {
		keywords[i] = strings.ToLower(k)
	}
	return ScorerConfig{HighRiskCountries: set, SuspiciousASNKeywords: keywords}
}

// Score computes a profile's threat score and the reasons each
// contributing rule fired (spec.md §4.4). It is a pure, deterministic
// function of profile and cfg.
func Score(p *Profile, cfg ScorerConfig) (score int, reasons []string) {
	total := 0

	if _, risky := cfg.HighRiskCountries[strings.ToUpper(p.Country)]; risky {
		total += 30
		reasons = append(reasons, fmt.Sprintf("high-risk country: %s", p.Country))
	}

	switch {
	case p.MaxSpeedMbps > 100:
		total += 40
		reasons = append(reasons, fmt.Sprintf("extreme speed: %.2f MB/s", p.MaxSpeedMbps))
	case p.MaxSpeedMbps > 50:
		total += 20
		reasons = append(reasons, fmt.Sprintf("high speed: %.2f MB/s", p.MaxSpeedMbps))
	}

	if p.TotalPackets > 10 && p.DropRatio() > 0.5 {
		total += 20
		reasons = append(reasons, fmt.Sprintf("high drop ratio: %.0f%% of %d packets", p.DropRatio()*100, p.TotalPackets))
	}

	if keyword, ok := matchSuspiciousASN(p.ASNDesc, cfg.SuspiciousASNKeywords); ok {
		total += 15
		reasons = append(reasons, fmt.Sprintf("suspicious ASN: matched %q in %q", keyword, p.ASNDesc))
	}

	if total > 100 {
		total = 100
	}
	return total, reasons
}

// matchSuspiciousASN reports whether any keyword is a case-insensitive
// substring of desc, counted once even when multiple keywords match.
func matchSuspiciousASN(desc string, keywords []string) (string, bool) {
	lower := strings.ToLower(desc)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}
