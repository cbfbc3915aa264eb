package check

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/optimode/verimail/internal/breaker"
	"github.com/optimode/verimail/internal/dnsclient"
	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

// AFallbackMarker is the synthetic record noted when a domain has no MX
// but resolves via an A record.
const AFallbackMarker = "[A record fallback]"

// MXChecker resolves mail exchangers for a domain. When the DNS circuit
// is open it serves a stale cached answer if one exists, otherwise an
// unknown result.
type MXChecker struct {
	dns   *dnsclient.Client
	cache *ttlcache.Cache[types.MXCheck]
}

// NewMXChecker creates an MX checker backed by the given DNS client and
// cache (typically 2000 entries, 5 minute TTL).
func NewMXChecker(dns *dnsclient.Client, cache *ttlcache.Cache[types.MXCheck]) *MXChecker {
	return &MXChecker{dns: dns, cache: cache}
}

func (c *MXChecker) Check(ctx context.Context, domain string) types.MXCheck {
	key := strings.ToLower(domain)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached
		}
	}

	res, cacheable := c.lookup(ctx, key)
	if cacheable && c.cache != nil {
		c.cache.Set(key, res)
	}
	return res
}

// lookup resolves MX (then A as fallback) and reports whether the answer
// is worth caching. Breaker-open and transport failures are not cached.
func (c *MXChecker) lookup(ctx context.Context, domain string) (types.MXCheck, bool) {
	res, err := c.dns.Query(ctx, domain, dnsclient.TypeMX)
	if err != nil {
		return c.degraded(domain, err), false
	}

	if res.Success {
		hosts := dnsclient.MXHosts(res.Records)
		if len(hosts) > 0 {
			return types.MXCheck{
				Valid:   true,
				Records: hosts,
				Message: fmt.Sprintf("%d MX record(s) found", len(hosts)),
			}, true
		}
	}

	// No MX: fall back to A-record existence.
	aRes, err := c.dns.Query(ctx, domain, dnsclient.TypeA)
	if err != nil {
		return c.degraded(domain, err), false
	}
	if aRes.Success && len(aRes.Records) > 0 {
		return types.MXCheck{
			Valid:   true,
			Records: []string{AFallbackMarker},
			Message: "no MX record, but A record found",
		}, true
	}

	return types.MXCheck{Valid: false, Message: "no MX or A records found"}, true
}

// degraded serves a stale cached answer when possible, otherwise an
// unknown result explaining the DNS trouble.
func (c *MXChecker) degraded(domain string, err error) types.MXCheck {
	if c.cache != nil {
		if v, ok, _ := c.cache.GetStale(domain); ok {
			v.Stale = true
			return v
		}
	}
	msg := "MX lookup failed: DNS unavailable"
	if !errors.Is(err, breaker.ErrOpen) {
		msg = fmt.Sprintf("MX lookup failed: %v", err)
	}
	return types.MXCheck{Valid: false, Message: msg}
}
