package check

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/optimode/verimail/internal/datasets"
	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

// rdapTimeout bounds the registration-data lookup.
const rdapTimeout = 5 * time.Second

// ageUnknownMessage is the stable message for undeterminable ages.
const ageUnknownMessage = "Domain age could not be determined"

// defaultRDAPServers maps supported TLDs to their registry RDAP base.
// Lookups are GET <base>/<domain> with Accept: application/rdap+json.
var defaultRDAPServers = map[string]string{
	"com": "https://rdap.verisign.com/com/v1/domain",
	"net": "https://rdap.verisign.com/net/v1/domain",
	"org": "https://rdap.publicinterestregistry.org/rdap/domain",
	"io":  "https://rdap.identitydigital.services/rdap/domain",
	"co":  "https://rdap.nic.co/domain",
	"me":  "https://rdap.nic.me/domain",
	"dev": "https://rdap.nic.google/domain",
	"app": "https://rdap.nic.google/domain",
}

// ReputationChecker aggregates per-domain reputation factors: RDAP
// registration age, blocklist listings, and lexical pattern heuristics.
// The factor deltas start from a baseline of 70 and clamp to [0,100].
type ReputationChecker struct {
	blacklist  *BlacklistChecker
	cache      *ttlcache.Cache[types.ReputationCheck]
	httpClient *http.Client
	rdapBases  map[string]string
	now        func() time.Time
}

// NewReputationChecker creates a reputation checker backed by the given
// cache (typically 500 entries, 30 minute TTL). The blocklist checker is
// shared with the core pipeline so listings are only resolved once.
func NewReputationChecker(blacklist *BlacklistChecker, cache *ttlcache.Cache[types.ReputationCheck]) *ReputationChecker {
	return &ReputationChecker{
		blacklist:  blacklist,
		cache:      cache,
		httpClient: &http.Client{},
		rdapBases:  defaultRDAPServers,
		now:        time.Now,
	}
}

// SetRDAPBases overrides the TLD table (tests point it at a local server).
func (c *ReputationChecker) SetRDAPBases(bases map[string]string) { c.rdapBases = bases }

// SetHTTPClient overrides the HTTP client used for RDAP.
func (c *ReputationChecker) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// SetClock overrides the time source (tests pin the age math).
func (c *ReputationChecker) SetClock(now func() time.Time) { c.now = now }

func (c *ReputationChecker) Check(ctx context.Context, domain string) types.ReputationCheck {
	key := strings.ToLower(domain)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached
		}
	}

	var age types.DomainAge
	var listings []string
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		age = c.domainAge(ctx, key)
	}()
	go func() {
		defer wg.Done()
		bl := c.blacklist.Check(ctx, key)
		listings = bl.Lists
	}()
	wg.Wait()

	res := synthesize(key, age, listings)
	if c.cache != nil {
		c.cache.Set(key, res)
	}
	return res
}

// rdapBody is the slice of the RDAP response the age probe consumes.
type rdapBody struct {
	Events []struct {
		EventAction string    `json:"eventAction"`
		EventDate   time.Time `json:"eventDate"`
	} `json:"events"`
}

// domainAge fetches the registration date over RDAP and classifies it.
func (c *ReputationChecker) domainAge(ctx context.Context, domain string) types.DomainAge {
	unknown := types.DomainAge{Message: ageUnknownMessage}

	dot := strings.LastIndex(domain, ".")
	if dot < 0 {
		return unknown
	}
	base, ok := c.rdapBases[domain[dot+1:]]
	if !ok {
		return unknown
	}

	reqCtx, cancel := context.WithTimeout(ctx, rdapTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, base+"/"+domain, nil)
	if err != nil {
		return unknown
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unknown
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unknown
	}

	var body rdapBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return unknown
	}

	for _, ev := range body.Events {
		if ev.EventAction != "registration" || ev.EventDate.IsZero() {
			continue
		}
		days := int(c.now().Sub(ev.EventDate).Hours() / 24)
		registered := ev.EventDate
		return types.DomainAge{
			AgeInDays:    &days,
			RegisteredAt: &registered,
			IsNew:        days < 30,
			IsYoung:      days < 180,
		}
	}
	return unknown
}

// synthesize folds the factor table into the final reputation score.
func synthesize(domain string, age types.DomainAge, listings []string) types.ReputationCheck {
	res := types.ReputationCheck{
		Checked:  true,
		Age:      age,
		Listings: listings,
	}
	score := 70
	add := func(name string, delta int) {
		res.Factors = append(res.Factors, types.ReputationFactor{Name: name, Delta: delta})
		score += delta
	}

	if age.AgeInDays != nil {
		days := *age.AgeInDays
		switch {
		case days < 7:
			add("Very New Domain", -40)
		case days < 30:
			add("New Domain", -25)
		case days < 180:
			add("Young Domain", -10)
		case days > 730:
			add("Established Domain", 20)
		case days > 365:
			add("Mature Domain", 10)
		}
	}

	if n := len(listings); n > 0 {
		add("Blocklisted", -30*n)
	} else {
		add("Clean Record", 15)
	}

	labels := strings.Split(domain, ".")
	tld := labels[len(labels)-1]
	if _, ok := datasets.HighRiskTLDs[tld]; ok {
		add("High-Risk TLD", -15)
	} else if _, ok := datasets.PremiumTLDs[tld]; ok {
		add("Premium TLD", 10)
	}

	main := labels[0]
	if len(main) > 25 {
		add("Long Domain Label", -5)
	}
	if strings.Count(main, "-") >= 3 {
		add("Excessive Hyphens", -5)
	}
	if digitCount(main) >= 5 {
		add("Excessive Digits", -5)
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	res.Score = score

	switch {
	case score >= 80:
		res.Risk = types.RepRiskLow
	case score >= 60:
		res.Risk = types.RepRiskMedium
	case score >= 40:
		res.Risk = types.RepRiskHigh
	default:
		res.Risk = types.RepRiskCritical
	}
	return res
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
