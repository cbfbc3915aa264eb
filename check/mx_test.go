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

func TestMXChecker_RecordsFound(t *testing.T) {
	dns := &fakeDNS{}
	dns.set("example.com", 15, mx("20 backup.example.com."), mx("10 primary.example.com."))
	c := check.NewMXChecker(newTestDNS(dns), nil)

	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.Valid)
	assert.Equal(t, []string{"primary.example.com", "backup.example.com"}, res.Records)
	assert.Contains(t, res.Message, "2 MX record(s)")
}

func TestMXChecker_AFallback(t *testing.T) {
	dns := &fakeDNS{}
	dns.set("example.com", 1, aRecord("192.0.2.1"))
	c := check.NewMXChecker(newTestDNS(dns), nil)

	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.Valid)
	assert.Equal(t, []string{check.AFallbackMarker}, res.Records)
}

func TestMXChecker_NoRecords(t *testing.T) {
	dns := &fakeDNS{}
	c := check.NewMXChecker(newTestDNS(dns), nil)

	res := c.Check(context.Background(), "nxdomain.example")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "no MX or A records")
}

func TestMXChecker_ServesStaleOnFailure(t *testing.T) {
	now := time.Now()
	cache := ttlcache.NewWithClock[types.MXCheck](10, time.Minute, func() time.Time { return now })

	dns := &fakeDNS{}
	dns.set("example.com", 15, mx("10 mail.example.com."))
	c := check.NewMXChecker(newTestDNS(dns), cache)

	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.Valid)

	// The entry expires and DNS goes down; the stale answer is served.
	now = now.Add(2 * time.Minute)
	dns.failAll = true
	res = c.Check(context.Background(), "example.com")
	assert.True(t, res.Valid)
	assert.True(t, res.Stale)
	assert.Equal(t, []string{"mail.example.com"}, res.Records)
}

func TestMXChecker_FailureWithoutCacheIsUnknown(t *testing.T) {
	dns := &fakeDNS{failAll: true}
	c := check.NewMXChecker(newTestDNS(dns), ttlcache.New[types.MXCheck](10, time.Minute))

	res := c.Check(context.Background(), "example.com")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "MX lookup failed")
}

func TestMXChecker_CachesPositiveAnswer(t *testing.T) {
	cache := ttlcache.New[types.MXCheck](10, time.Minute)
	dns := &fakeDNS{}
	dns.set("example.com", 15, mx("10 mail.example.com."))
	c := check.NewMXChecker(newTestDNS(dns), cache)

	_ = c.Check(context.Background(), "example.com")
	queriesAfterFirst := len(dns.queries)
	_ = c.Check(context.Background(), "EXAMPLE.com")

	assert.Equal(t, queriesAfterFirst, len(dns.queries), "second lookup must be served from cache")
}
