package parse

import (
	"strings"

	"golang.org/x/net/idna"
)

// Address is the internal representation of a parsed email address.
// The check/ packages receive this as parameter.
type Address struct {
	Raw           string // the original, trimmed input
	Local         string // the part before the last @
	Domain        string // the part after the last @, ASCII/Punycode form, lowercased
	DomainUnicode string // the part after the last @, Unicode form (for display/typo detection)
	Valid         bool   // false if Raw cannot be split into local@domain
}

// NewAddress splits the given email string at the last @ and normalizes
// the domain. If splitting fails, Valid=false but Raw is always populated.
// Full lexical validation is the syntax probe's job; this only produces
// the two halves the probes operate on.
func NewAddress(raw string) Address {
	raw = strings.TrimSpace(raw)

	atIdx := strings.LastIndex(raw, "@")
	if atIdx < 1 || atIdx >= len(raw)-1 {
		return Address{Raw: raw, Valid: false}
	}
	local := raw[:atIdx]
	domain := raw[atIdx+1:]

	asciiDomain, unicodeDomain, ok := convertDomain(strings.ToLower(domain))
	if !ok {
		return Address{Raw: raw, Valid: false}
	}

	return Address{
		Raw:           raw,
		Local:         local,
		Domain:        asciiDomain,
		DomainUnicode: unicodeDomain,
		Valid:         true,
	}
}

// convertDomain converts a domain to both ASCII/Punycode and Unicode forms.
// Returns (ascii, unicode, ok). ok is false if the domain contains
// non-ASCII characters that fail IDNA2008 validation.
func convertDomain(domain string) (ascii, unicode string, ok bool) {
	// Bracketed IP literals pass through untouched.
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return domain, domain, true
	}

	hasNonASCII := false
	for _, r := range domain {
		if r > 127 {
			hasNonASCII = true
			break
		}
	}

	if hasNonASCII {
		// Internationalized domain: convert to Punycode via IDNA2008
		a, err := idna.Lookup.ToASCII(domain)
		if err != nil {
			return "", "", false
		}
		return a, domain, true
	}

	// Pure ASCII domain: try to get Unicode display form
	// (handles existing Punycode like xn--mnchen-3ya.de → münchen.de)
	u, err := idna.Display.ToUnicode(domain)
	if err != nil {
		u = domain
	}
	return domain, u, true
}
