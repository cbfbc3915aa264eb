// Package sanitize normalizes and bounds caller-facing input before it
// reaches the validation pipeline.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxEmailLength = 254

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	schemeRe    = regexp.MustCompile(`(?i)(?:javascript|vbscript|data|file):`)
	eventAttrRe = regexp.MustCompile(`(?i)on\w+\s*=`)
	exprRe      = regexp.MustCompile(`(?i)expression\(`)
)

// Email scrubs a single raw input down to a bounded, lowercased,
// NFC-normalized string safe to use as a cache key and log field.
func Email(raw string) string {
	s := stripControl(raw)
	s = htmlTagRe.ReplaceAllString(s, "")
	s = schemeRe.ReplaceAllString(s, "")
	s = eventAttrRe.ReplaceAllString(s, "")
	s = exprRe.ReplaceAllString(s, "")
	s = norm.NFC.String(s)
	if len(s) > maxEmailLength {
		cut := maxEmailLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return strings.TrimSpace(strings.ToLower(s))
}

// ListReport is the outcome of sanitizing an email slice.
type ListReport struct {
	Emails            []string
	DuplicatesRemoved int
	InvalidRemoved    int
}

// EmailList sanitizes every entry, drops obviously unusable ones (no @
// or shorter than 5 characters), deduplicates keeping first-seen order,
// and caps the result at max entries (1000 when max <= 0).
func EmailList(raw []string, max int) ListReport {
	if max <= 0 {
		max = 1000
	}

	var report ListReport
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		s := Email(r)
		if len(s) < 5 || !strings.Contains(s, "@") {
			report.InvalidRemoved++
			continue
		}
		if _, dup := seen[s]; dup {
			report.DuplicatesRemoved++
			continue
		}
		if len(report.Emails) >= max {
			break
		}
		seen[s] = struct{}{}
		report.Emails = append(report.Emails, s)
	}
	return report
}

// stripControl removes C0 control bytes (keeping tab, LF, CR) and DEL.
func stripControl(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		if r == 0x7f {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
