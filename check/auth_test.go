package check_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/verimail/check"
	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

func TestAuthChecker_FullyConfigured(t *testing.T) {
	dns := &fakeDNS{}
	dns.setTXT("example.com", "v=spf1 include:_spf.example.com -all")
	dns.setTXT("_dmarc.example.com", "v=DMARC1; p=reject; rua=mailto:dmarc@example.com; pct=100")
	dns.setTXT("selector1._domainkey.example.com", "v=DKIM1; k=rsa; p=MIGfMA0GCSqGSIb3")
	c := check.NewAuthChecker(newTestDNS(dns), nil)

	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.Checked)

	assert.True(t, res.SPF.Found)
	assert.Equal(t, types.StrengthStrong, res.SPF.Strength)
	assert.Contains(t, res.SPF.Mechanisms, "include:_spf.example.com")

	assert.True(t, res.DMARC.Found)
	assert.Equal(t, "reject", res.DMARC.Policy)
	assert.Equal(t, types.StrengthStrong, res.DMARC.Strength)
	assert.Equal(t, "mailto:dmarc@example.com", res.DMARC.RUA)
	assert.Equal(t, 100, res.DMARC.Percent)

	assert.True(t, res.DKIM.Found)
	assert.Contains(t, res.DKIM.Selectors, "selector1")

	// 35 (SPF strong) + 35 (DMARC strong) + 15 (one DKIM selector)
	assert.Equal(t, 85, res.Score)
}

func TestAuthChecker_SPFStrengths(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   types.AuthStrength
	}{
		{"hard fail", "v=spf1 mx -all", types.StrengthStrong},
		{"soft fail", "v=spf1 mx ~all", types.StrengthModerate},
		{"neutral", "v=spf1 mx ?all", types.StrengthWeak},
		{"pass all", "v=spf1 +all", types.StrengthWeak},
		{"no all term", "v=spf1 mx", types.StrengthWeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dns := &fakeDNS{}
			dns.setTXT("example.com", tt.record)
			c := check.NewAuthChecker(newTestDNS(dns), nil)

			res := c.Check(context.Background(), "example.com")
			assert.Equal(t, tt.want, res.SPF.Strength)
		})
	}
}

func TestAuthChecker_SPFRedirect(t *testing.T) {
	dns := &fakeDNS{}
	dns.setTXT("example.com", "v=spf1 redirect=_spf.other.example")
	c := check.NewAuthChecker(newTestDNS(dns), nil)

	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.SPF.Found)
	assert.Equal(t, "_spf.other.example", res.SPF.Redirect)
}

func TestAuthChecker_DMARCStrengths(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   types.AuthStrength
	}{
		{"reject", "v=DMARC1; p=reject", types.StrengthStrong},
		{"quarantine", "v=DMARC1; p=quarantine", types.StrengthModerate},
		{"none with reporting", "v=DMARC1; p=none; rua=mailto:r@example.com", types.StrengthWeak},
		{"none without reporting", "v=DMARC1; p=none", types.StrengthNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dns := &fakeDNS{}
			dns.setTXT("_dmarc.example.com", tt.record)
			c := check.NewAuthChecker(newTestDNS(dns), nil)

			res := c.Check(context.Background(), "example.com")
			assert.Equal(t, tt.want, res.DMARC.Strength)
		})
	}
}

func TestAuthChecker_DKIMRevoked(t *testing.T) {
	dns := &fakeDNS{}
	dns.setTXT("default._domainkey.example.com", "v=DKIM1; p=")
	c := check.NewAuthChecker(newTestDNS(dns), nil)

	res := c.Check(context.Background(), "example.com")
	assert.False(t, res.DKIM.Found)
	assert.Contains(t, res.DKIM.Revoked, "default")
}

func TestAuthChecker_NothingConfigured(t *testing.T) {
	dns := &fakeDNS{}
	c := check.NewAuthChecker(newTestDNS(dns), nil)

	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.Checked)
	assert.Equal(t, types.StrengthNone, res.SPF.Strength)
	assert.Equal(t, types.StrengthNone, res.DMARC.Strength)
	assert.False(t, res.DKIM.Found)
	assert.Zero(t, res.Score)
}

func TestAuthChecker_ServesStaleOnFailure(t *testing.T) {
	now := time.Now()
	cache := ttlcache.NewWithClock[types.AuthCheck](10, time.Minute, func() time.Time { return now })

	dns := &fakeDNS{}
	dns.setTXT("example.com", "v=spf1 -all")
	c := check.NewAuthChecker(newTestDNS(dns), cache)

	fresh := c.Check(context.Background(), "example.com")
	assert.True(t, fresh.Checked)
	assert.Equal(t, 35, fresh.Score)

	// The entry expires and DNS goes down; the stale verdict is served.
	now = now.Add(2 * time.Minute)
	dns.failAll = true
	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.Checked)
	assert.True(t, res.Stale)
	assert.Equal(t, 35, res.Score)
}

func TestAuthChecker_FailureWithoutCacheIsUnchecked(t *testing.T) {
	dns := &fakeDNS{failAll: true}
	c := check.NewAuthChecker(newTestDNS(dns), ttlcache.New[types.AuthCheck](10, time.Minute))

	res := c.Check(context.Background(), "example.com")
	assert.False(t, res.Checked)
	assert.Contains(t, res.Message, "unavailable")
}

func TestAuthChecker_Caches(t *testing.T) {
	dns := &fakeDNS{}
	dns.setTXT("example.com", "v=spf1 -all")
	cache := ttlcache.New[types.AuthCheck](10, time.Minute)
	c := check.NewAuthChecker(newTestDNS(dns), cache)

	_ = c.Check(context.Background(), "example.com")
	queriesAfterFirst := len(dns.queries)
	_ = c.Check(context.Background(), "example.com")

	assert.Equal(t, queriesAfterFirst, len(dns.queries))
}
