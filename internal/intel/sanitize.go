// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package intel owns everything the system knows about a source address
// beyond its live traffic behavior: the bounded LRU profile cache
// (spec.md §4.3), the sanitizing profile model (spec.md §3), the
// rule-based threat scorer (spec.md §4.4), and the rate-limited
// enrichment worker (spec.md §4.5).
package intel

import (
	"regexp"
	"strings"
)

const ellipsis = "…"

var ipLiteralPattern = regexp.MustCompile(`^[0-9a-fA-F.:]+$`)

// Sanitize normalizes a string field before it is stored in a profile or
// written to any persisted or logged record: control bytes in
// 0x00-0x1F and 0x7F-0x9F are removed, the result is trimmed, and it is
// truncated to maxLen, appending an ellipsis marker when truncation
// occurred.
func Sanitize(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			continue
		}
		b.WriteRune(r)
	}
	clean := strings.TrimSpace(b.String())

	if maxLen <= 0 || len(clean) <= maxLen {
		return clean
	}
	cut := maxLen - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	return clean[:cut] + ellipsis
}

// SanitizeIP validates s against the restricted IP-literal grammar
// ([0-9a-fA-F.:]+, at most 45 characters) and returns it unchanged if
// valid, or the literal "invalid" otherwise.
func SanitizeIP(s string) string {
	if len(s) > 45 || !ipLiteralPattern.MatchString(s) {
		return "invalid"
	}
	return s
}

// IsValidIPLiteral reports whether s satisfies the restricted IP-literal
// grammar used across netshield's wire and storage formats.
func IsValidIPLiteral(s string) bool {
	return len(s) <= 45 && ipLiteralPattern.MatchString(s)
}
