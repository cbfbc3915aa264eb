package check

import (
	"strings"

	"github.com/optimode/verimail/internal/datasets"
	"github.com/optimode/verimail/types"
)

// DisposableChecker detects throwaway-mail domains: exact list matches,
// subdomains of a listed root, and a pattern fallback for lookalikes.
type DisposableChecker struct{}

func NewDisposableChecker() *DisposableChecker {
	return &DisposableChecker{}
}

func (c *DisposableChecker) Check(domain string) types.DisposableCheck {
	d := strings.ToLower(domain)

	if _, ok := datasets.DisposableDomains[d]; ok {
		return types.DisposableCheck{IsDisposable: true, Matched: d}
	}

	// Subdomain of a listed root
	for i := strings.Index(d, "."); i >= 0; i = strings.Index(d, ".") {
		d = d[i+1:]
		if _, ok := datasets.DisposableDomains[d]; ok {
			return types.DisposableCheck{IsDisposable: true, Matched: d}
		}
	}

	for _, re := range datasets.DisposablePatterns {
		if re.MatchString(strings.ToLower(domain)) {
			return types.DisposableCheck{IsDisposable: true, Matched: re.String()}
		}
	}

	return types.DisposableCheck{IsDisposable: false}
}
