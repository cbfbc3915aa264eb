package check

import (
	"strings"

	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

// DomainChecker validates the format of the domain part without any I/O.
// Exists is reported optimistically; actual existence is settled by the
// MX probe. Results are cached per lowercased domain.
type DomainChecker struct {
	cache *ttlcache.Cache[types.DomainCheck]
}

// NewDomainChecker creates a domain-format checker backed by the given
// cache (typically 2000 entries, 10 minute TTL).
func NewDomainChecker(cache *ttlcache.Cache[types.DomainCheck]) *DomainChecker {
	return &DomainChecker{cache: cache}
}

func (c *DomainChecker) Check(domain string) types.DomainCheck {
	key := strings.ToLower(domain)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached
		}
	}

	res := c.validate(key)
	if c.cache != nil {
		c.cache.Set(key, res)
	}
	return res
}

func (c *DomainChecker) validate(domain string) types.DomainCheck {
	if domain == "" {
		return types.DomainCheck{Valid: false, Message: "domain is empty"}
	}
	if len(domain) > 253 {
		return types.DomainCheck{Valid: false, Message: "domain exceeds 253 characters"}
	}

	// IP literals were already accepted by the syntax probe.
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return types.DomainCheck{Valid: true, Exists: true, Message: "IP literal"}
	}

	if !strings.Contains(domain, ".") {
		return types.DomainCheck{Valid: false, Message: "domain must contain at least one dot"}
	}
	if strings.Contains(domain, "..") {
		return types.DomainCheck{Valid: false, Message: "domain contains consecutive dots"}
	}

	labels := strings.Split(domain, ".")
	for _, label := range labels {
		if !labelRe.MatchString(label) {
			return types.DomainCheck{Valid: false, Message: "domain contains an invalid label: " + label}
		}
	}
	if len(labels[len(labels)-1]) < 2 {
		return types.DomainCheck{Valid: false, Message: "top-level domain must be at least 2 characters"}
	}

	return types.DomainCheck{Valid: true, Exists: true, Message: "domain format ok"}
}
