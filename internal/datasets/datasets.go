// Package datasets bundles the static lists the lexical probes match
// against: disposable domains, free providers, role prefixes, DNSBL
// zones and common typos. Lists are embedded at build time and carry
// versioned metadata.
package datasets

import (
	_ "embed"
	"regexp"
	"strings"
)

// Metadata describes one bundled list.
type Metadata struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Count       int    `json:"count"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
}

//go:embed disposable_domains.txt
var rawDisposable string

//go:embed free_providers.txt
var rawFreeProviders string

//go:embed role_prefixes.txt
var rawRoles string

//go:embed dnsbl_zones.txt
var rawDNSBL string

//go:embed common_typos.txt
var rawTypos string

var (
	// DisposableDomains is the set of known throwaway-mail roots.
	// Subdomains of a listed root also count as disposable.
	DisposableDomains map[string]struct{}

	// DisposablePatterns is the fallback heuristic for domains that are
	// not on the list but look like throwaway providers.
	DisposablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^temp`),
		regexp.MustCompile(`^fake`),
		regexp.MustCompile(`^throw`),
		regexp.MustCompile(`mailinator`),
		regexp.MustCompile(`guerrilla`),
		regexp.MustCompile(`minute.*mail`),
		regexp.MustCompile(`^trash`),
		regexp.MustCompile(`^burner`),
	}

	// FreeProviders maps free mailbox domains to a display name.
	FreeProviders map[string]string

	// RolePrefixes is the set of role-based local parts.
	RolePrefixes map[string]struct{}

	// DNSBLZones lists the blocklist zones queried as <domain>.<zone>.
	DNSBLZones []string

	// TypoMap maps common misspellings to the canonical domain.
	TypoMap map[string]string

	// CanonicalDomains is the small set used for the edit-distance typo
	// fallback.
	CanonicalDomains = []string{
		"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
		"icloud.com", "aol.com", "protonmail.com", "live.com", "ymail.com",
	}

	// CanonicalTLDs is used for the bare-TLD typo rewrite (trailing
	// ".comm" and friends).
	CanonicalTLDs = map[string]string{
		"comm": "com", "cmo": "com", "con": "com", "vom": "com",
		"nett": "net", "ner": "net",
		"ogr": "org", "orgg": "org",
	}

	// HighRiskTLDs and PremiumTLDs feed the reputation factor table.
	HighRiskTLDs = set("xyz", "top", "work", "click", "link", "gq", "ml",
		"cf", "tk", "ga", "buzz", "icu", "loan", "ooo")
	PremiumTLDs = set("com", "net", "org", "edu", "gov", "io", "co", "dev", "app")

	// DisposableMeta and friends expose the versioned metadata of each list.
	DisposableMeta   Metadata
	FreeProviderMeta Metadata
	RoleMeta         Metadata
	DNSBLMeta        Metadata
	TypoMeta         Metadata
)

func init() {
	DisposableDomains = make(map[string]struct{})
	for _, line := range lines(rawDisposable) {
		DisposableDomains[strings.ToLower(line)] = struct{}{}
	}
	DisposableMeta = Metadata{
		Version:     "2025.08",
		LastUpdated: "2025-08-12",
		Count:       len(DisposableDomains),
		Source:      "curated from public disposable-domain lists",
		Description: "known throwaway mail domains",
	}

	FreeProviders = make(map[string]string)
	for _, line := range lines(rawFreeProviders) {
		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 2 {
			FreeProviders[strings.ToLower(parts[0])] = parts[1]
		}
	}
	FreeProviderMeta = Metadata{
		Version:     "2025.08",
		LastUpdated: "2025-08-12",
		Count:       len(FreeProviders),
		Description: "free mailbox providers with display names",
	}

	RolePrefixes = make(map[string]struct{})
	for _, line := range lines(rawRoles) {
		RolePrefixes[strings.ToLower(line)] = struct{}{}
	}
	RoleMeta = Metadata{
		Version:     "2025.08",
		LastUpdated: "2025-08-12",
		Count:       len(RolePrefixes),
		Description: "role-based local parts",
	}

	for _, line := range lines(rawDNSBL) {
		DNSBLZones = append(DNSBLZones, strings.ToLower(line))
	}
	DNSBLMeta = Metadata{
		Version:     "2025.08",
		LastUpdated: "2025-08-12",
		Count:       len(DNSBLZones),
		Description: "domain blocklist zones",
	}

	TypoMap = make(map[string]string)
	for _, line := range lines(rawTypos) {
		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 2 {
			TypoMap[strings.ToLower(parts[0])] = strings.ToLower(parts[1])
		}
	}
	TypoMeta = Metadata{
		Version:     "2025.08",
		LastUpdated: "2025-08-12",
		Count:       len(TypoMap),
		Description: "common domain misspellings",
	}
}

// lines splits an embedded list into trimmed, non-comment lines. Case is
// preserved: the free-provider list carries a display-name column, so
// the loaders lowercase the key columns themselves.
func lines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
