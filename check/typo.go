package check

import (
	"strings"

	"github.com/optimode/verimail/internal/datasets"
	"github.com/optimode/verimail/internal/levenshtein"
	"github.com/optimode/verimail/types"
)

// TypoChecker detects likely misspellings of well-known domains. Three
// strategies, first hit wins: the direct misspelling map, a bare-TLD
// rewrite (trailing ".comm" and friends), and an edit-distance fallback
// against a small canonical provider set.
type TypoChecker struct {
	// Threshold is the maximum edit distance for the fallback. Default: 2.
	Threshold int
}

func NewTypoChecker() *TypoChecker {
	return &TypoChecker{Threshold: 2}
}

func (c *TypoChecker) Check(domain string) types.TypoCheck {
	d := strings.ToLower(domain)

	// Known-good domains are never typos.
	if c.isKnownGood(d) {
		return types.TypoCheck{HasTypo: false}
	}

	if canonical, ok := datasets.TypoMap[d]; ok {
		return types.TypoCheck{HasTypo: true, Suggestion: canonical}
	}

	// Bare TLD typo: rewrite only the TLD, keep the name.
	if dot := strings.LastIndex(d, "."); dot > 0 {
		name, tld := d[:dot], d[dot+1:]
		if fixed, ok := datasets.CanonicalTLDs[tld]; ok {
			return types.TypoCheck{HasTypo: true, Suggestion: name + "." + fixed}
		}
	}

	threshold := c.Threshold
	if threshold <= 0 {
		threshold = 2
	}
	bestDist := threshold + 1
	bestMatch := ""
	for _, canonical := range datasets.CanonicalDomains {
		dist := levenshtein.Distance(d, canonical)
		if dist <= threshold && dist < bestDist {
			bestDist = dist
			bestMatch = canonical
		}
	}
	if bestMatch != "" {
		return types.TypoCheck{HasTypo: true, Suggestion: bestMatch}
	}

	return types.TypoCheck{HasTypo: false}
}

// isKnownGood exempts canonical providers and everything on the free
// provider list from typo detection.
func (c *TypoChecker) isKnownGood(domain string) bool {
	if _, ok := datasets.FreeProviders[domain]; ok {
		return true
	}
	for _, canonical := range datasets.CanonicalDomains {
		if domain == canonical {
			return true
		}
	}
	return false
}
