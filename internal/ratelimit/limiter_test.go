package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/verimail/internal/ratelimit"
)

func testRules() map[ratelimit.Scope]ratelimit.Rule {
	return map[ratelimit.Scope]ratelimit.Rule{
		ratelimit.ScopeSingle:     {Limit: 3, Window: time.Minute},
		ratelimit.ScopeSMTPDomain: {Limit: 1, Window: time.Minute},
	}
}

func TestLimiter_FixedWindow(t *testing.T) {
	now := time.Now()
	l := ratelimit.NewWithClock(testRules(), func() time.Time { return now })

	for i := 0; i < 3; i++ {
		d := l.Allow(ratelimit.ScopeSingle, "client-1")
		assert.True(t, d.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d := l.Allow(ratelimit.ScopeSingle, "client-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.RetryAfter)

	// A different identifier has its own window.
	assert.True(t, l.Allow(ratelimit.ScopeSingle, "client-2").Allowed)

	// The window resets after it elapses.
	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow(ratelimit.ScopeSingle, "client-1").Allowed)
}

func TestLimiter_ScopesAreIndependent(t *testing.T) {
	now := time.Now()
	l := ratelimit.NewWithClock(testRules(), func() time.Time { return now })

	assert.True(t, l.Allow(ratelimit.ScopeSMTPDomain, "example.com").Allowed)
	assert.False(t, l.Allow(ratelimit.ScopeSMTPDomain, "example.com").Allowed)

	// Same identifier under another scope is unaffected.
	assert.True(t, l.Allow(ratelimit.ScopeSingle, "example.com").Allowed)
}

func TestLimiter_UnknownScopeAllowed(t *testing.T) {
	l := ratelimit.NewWithClock(testRules(), time.Now)
	d := l.Allow(ratelimit.ScopeBulk, "anyone")
	assert.True(t, d.Allowed)
}

func TestDecision_Headers(t *testing.T) {
	now := time.Now()
	l := ratelimit.NewWithClock(testRules(), func() time.Time { return now })

	d := l.Allow(ratelimit.ScopeSingle, "c")
	h := d.Headers()
	assert.Equal(t, "3", h["X-RateLimit-Limit"])
	assert.Equal(t, "2", h["X-RateLimit-Remaining"])
	assert.NotEmpty(t, h["X-RateLimit-Reset"])
	assert.NotContains(t, h, "Retry-After")

	l.Allow(ratelimit.ScopeSingle, "c")
	l.Allow(ratelimit.ScopeSingle, "c")
	d = l.Allow(ratelimit.ScopeSingle, "c")
	h = d.Headers()
	assert.Equal(t, "0", h["X-RateLimit-Remaining"])
	assert.Equal(t, "60", h["Retry-After"])
}

func TestLimiter_Sweep(t *testing.T) {
	now := time.Now()
	l := ratelimit.NewWithClock(testRules(), func() time.Time { return now })

	l.Allow(ratelimit.ScopeSingle, "a")
	l.Allow(ratelimit.ScopeSingle, "b")
	assert.Equal(t, 2, l.Len())

	assert.Equal(t, 0, l.Sweep(), "live windows are not reaped")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestDefaultRules(t *testing.T) {
	rules := ratelimit.DefaultRules()
	assert.Equal(t, ratelimit.Rule{Limit: 100, Window: time.Minute}, rules[ratelimit.ScopeSingle])
	assert.Equal(t, ratelimit.Rule{Limit: 10, Window: time.Minute}, rules[ratelimit.ScopeBulk])
	assert.Equal(t, ratelimit.Rule{Limit: 5, Window: time.Minute}, rules[ratelimit.ScopeSMTPDomain])
}
