package check

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/optimode/verimail/internal/datasets"
	"github.com/optimode/verimail/internal/dnsclient"
	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

// dnsblTimeout bounds each blocklist lookup.
const dnsblTimeout = 3 * time.Second

// BlacklistChecker queries domain blocklist zones: an A answer for
// <domain>.<zone> means the domain is listed.
type BlacklistChecker struct {
	dns   *dnsclient.Client
	zones []string
	cache *ttlcache.Cache[types.BlacklistCheck]
}

// NewBlacklistChecker creates a blocklist checker over the bundled DNSBL
// zones, backed by the given cache (typically 1000 entries, 30 min TTL).
func NewBlacklistChecker(dns *dnsclient.Client, cache *ttlcache.Cache[types.BlacklistCheck]) *BlacklistChecker {
	return &BlacklistChecker{dns: dns, zones: datasets.DNSBLZones, cache: cache}
}

func (c *BlacklistChecker) Check(ctx context.Context, domain string) types.BlacklistCheck {
	key := strings.ToLower(domain)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached
		}
	}

	listings, failures := c.query(ctx, key)

	if failures == len(c.zones) {
		// Nothing answered; prefer stale data over a blind "clean".
		if c.cache != nil {
			if v, ok, _ := c.cache.GetStale(key); ok {
				v.Stale = true
				return v
			}
		}
		return types.BlacklistCheck{Blacklisted: false, Message: "blocklist lookups unavailable"}
	}

	res := types.BlacklistCheck{Blacklisted: len(listings) > 0, Lists: listings}
	if c.cache != nil {
		c.cache.Set(key, res)
	}
	return res
}

// query checks every zone concurrently and returns the zones that list
// the domain plus the number of failed lookups.
func (c *BlacklistChecker) query(ctx context.Context, domain string) (listings []string, failures int) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, zone := range c.zones {
		wg.Add(1)
		go func(zone string) {
			defer wg.Done()
			res, err := c.dns.QueryTimeout(ctx, domain+"."+zone, dnsclient.TypeA, dnsblTimeout)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			if res.Success && len(res.Records) > 0 {
				listings = append(listings, zone)
			}
		}(zone)
	}
	wg.Wait()
	return listings, failures
}
