package check

import (
	"context"
	"strings"
	"sync"

	"github.com/optimode/verimail/internal/dnsclient"
	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

// dkimSelectors is the fixed set probed under <sel>._domainkey.<domain>.
var dkimSelectors = []string{
	"default", "selector1", "selector2", "google", "s1", "s2",
	"k1", "dkim", "mail", "email", "smtp", "mx",
}

// AuthChecker inspects a domain's SPF, DMARC and DKIM records and folds
// them into a 0..100 authentication score.
type AuthChecker struct {
	dns   *dnsclient.Client
	cache *ttlcache.Cache[types.AuthCheck]
}

// NewAuthChecker creates an authentication checker backed by the given
// cache (typically 500 entries, 10 minute TTL).
func NewAuthChecker(dns *dnsclient.Client, cache *ttlcache.Cache[types.AuthCheck]) *AuthChecker {
	return &AuthChecker{dns: dns, cache: cache}
}

func (c *AuthChecker) Check(ctx context.Context, domain string) types.AuthCheck {
	key := strings.ToLower(domain)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached
		}
	}

	res := types.AuthCheck{Checked: true}
	var spfErr, dmarcErr error
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		res.SPF, spfErr = c.checkSPF(ctx, key)
	}()
	go func() {
		defer wg.Done()
		res.DMARC, dmarcErr = c.checkDMARC(ctx, key)
	}()
	go func() {
		defer wg.Done()
		res.DKIM = c.checkDKIM(ctx, key)
	}()
	wg.Wait()

	// Both apex lookups failing means the resolver chain is down, not
	// that the domain has no policies. Prefer an expired cached verdict
	// over pinning a zero score.
	if spfErr != nil && dmarcErr != nil {
		if c.cache != nil {
			if v, ok, _ := c.cache.GetStale(key); ok {
				v.Stale = true
				return v
			}
		}
		return types.AuthCheck{Message: "authentication lookups unavailable"}
	}

	res.Score = authScore(res)
	if c.cache != nil {
		c.cache.Set(key, res)
	}
	return res
}

// checkSPF finds and parses the v=spf1 TXT record at the domain apex.
func (c *AuthChecker) checkSPF(ctx context.Context, domain string) (types.SPFResult, error) {
	record, ok, err := c.findTXT(ctx, domain, "v=spf1")
	if err != nil {
		return types.SPFResult{Strength: types.StrengthNone, Message: "SPF lookup failed"}, err
	}
	if !ok {
		return types.SPFResult{Strength: types.StrengthNone, Message: "no SPF record"}, nil
	}

	res := types.SPFResult{Found: true, Record: record}
	allQualifier := ""

	for _, term := range strings.Fields(record)[1:] {
		lower := strings.ToLower(term)
		switch {
		case strings.HasPrefix(lower, "redirect="):
			res.Redirect = term[len("redirect="):]
		case strings.HasPrefix(lower, "exp="):
			// explanation modifier carries no policy weight
		default:
			res.Mechanisms = append(res.Mechanisms, term)
			qualifier, mech := splitQualifier(lower)
			if mech == "all" {
				allQualifier = qualifier
			}
		}
	}

	switch allQualifier {
	case "-":
		res.Strength = types.StrengthStrong
	case "~":
		res.Strength = types.StrengthModerate
	default:
		// ?all, +all, or a missing all terminator
		res.Strength = types.StrengthWeak
	}
	return res, nil
}

func splitQualifier(term string) (qualifier, mechanism string) {
	if term == "" {
		return "+", ""
	}
	switch term[0] {
	case '+', '-', '~', '?':
		return string(term[0]), term[1:]
	}
	return "+", term
}

// checkDMARC finds and parses the v=DMARC1 TXT record at _dmarc.<domain>.
func (c *AuthChecker) checkDMARC(ctx context.Context, domain string) (types.DMARCResult, error) {
	record, ok, err := c.findTXT(ctx, "_dmarc."+domain, "v=DMARC1")
	if err != nil || !ok {
		return types.DMARCResult{Strength: types.StrengthNone}, err
	}
	return parseDMARC(record), nil
}

func parseDMARC(record string) types.DMARCResult {
	res := types.DMARCResult{Found: true, Record: record, Percent: 100}
	for _, tag := range strings.Split(record, ";") {
		tag = strings.TrimSpace(tag)
		eq := strings.Index(tag, "=")
		if eq <= 0 {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(tag[:eq]))
		v := strings.TrimSpace(tag[eq+1:])
		switch k {
		case "p":
			res.Policy = strings.ToLower(v)
		case "sp":
			res.SubdomainPolicy = strings.ToLower(v)
		case "pct":
			if n := atoiSafe(v); n > 0 {
				res.Percent = n
			}
		case "rua":
			res.RUA = v
		case "ruf":
			res.RUF = v
		case "adkim":
			res.ADKIM = strings.ToLower(v)
		case "aspf":
			res.ASPF = strings.ToLower(v)
		}
	}

	switch res.Policy {
	case "reject":
		res.Strength = types.StrengthStrong
	case "quarantine":
		res.Strength = types.StrengthModerate
	case "none":
		if res.RUA != "" || res.RUF != "" {
			res.Strength = types.StrengthWeak
		} else {
			res.Strength = types.StrengthNone
		}
	default:
		res.Strength = types.StrengthNone
	}
	return res
}

// checkDKIM probes the fixed selector set in parallel. A TXT containing
// "p=" counts as a published key; an empty "p=" means the key was revoked.
func (c *AuthChecker) checkDKIM(ctx context.Context, domain string) types.DKIMResult {
	var mu sync.Mutex
	var wg sync.WaitGroup
	res := types.DKIMResult{}

	for _, sel := range dkimSelectors {
		wg.Add(1)
		go func(sel string) {
			defer wg.Done()
			name := sel + "._domainkey." + domain
			out, err := c.dns.Query(ctx, name, dnsclient.TypeTXT)
			if err != nil || !out.Success {
				return
			}
			for _, txt := range dnsclient.TXTStrings(out.Records) {
				idx := strings.Index(txt, "p=")
				if idx < 0 {
					continue
				}
				rest := strings.TrimSpace(txt[idx+2:])
				mu.Lock()
				if rest == "" || strings.HasPrefix(rest, ";") {
					res.Revoked = append(res.Revoked, sel)
				} else {
					res.Selectors = append(res.Selectors, sel)
				}
				mu.Unlock()
				break
			}
		}(sel)
	}
	wg.Wait()

	res.Found = len(res.Selectors) > 0
	return res
}

// findTXT returns the first TXT record at name starting with prefix.
func (c *AuthChecker) findTXT(ctx context.Context, name, prefix string) (string, bool, error) {
	out, err := c.dns.Query(ctx, name, dnsclient.TypeTXT)
	if err != nil {
		return "", false, err
	}
	if !out.Success {
		return "", false, nil
	}
	for _, txt := range dnsclient.TXTStrings(out.Records) {
		if strings.HasPrefix(strings.TrimSpace(txt), prefix) {
			return strings.TrimSpace(txt), true, nil
		}
	}
	return "", false, nil
}

// authScore: SPF contributes up to 35, DMARC up to 35, DKIM 15 per valid
// selector capped at 30.
func authScore(res types.AuthCheck) int {
	score := strengthPoints(res.SPF.Strength)
	score += strengthPoints(res.DMARC.Strength)

	dkim := len(res.DKIM.Selectors) * 15
	if dkim > 30 {
		dkim = 30
	}
	return score + dkim
}

func strengthPoints(s types.AuthStrength) int {
	switch s {
	case types.StrengthStrong:
		return 35
	case types.StrengthModerate:
		return 25
	case types.StrengthWeak:
		return 10
	default:
		return 0
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
