// Package ratelimit implements a fixed-window rate limiter keyed by
// (scope, identifier), plus a token-bucket pacer for outbound SMTP.
// Expired windows are reaped by a background sweeper.
package ratelimit

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Scope namespaces the limiter keys.
type Scope string

const (
	ScopeSingle     Scope = "single"
	ScopeBulk       Scope = "bulk"
	ScopeSMTPDomain Scope = "smtp-domain"
	ScopeClientIP   Scope = "client-ip"
)

// Rule is the limit for one scope: Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// DefaultRules mirror the engine's process-level defaults.
func DefaultRules() map[Scope]Rule {
	return map[Scope]Rule{
		ScopeSingle:     {Limit: 100, Window: time.Minute},
		ScopeBulk:       {Limit: 10, Window: time.Minute},
		ScopeSMTPDomain: {Limit: 5, Window: time.Minute},
		ScopeClientIP:   {Limit: 100, Window: time.Minute},
	}
}

// Decision is the outcome of an Allow call. On a block, Remaining is 0
// and RetryAfter says how long until the window resets.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Headers renders the rate-limit hint headers an HTTP layer should emit.
// Retry-After is present only on a block.
func (d Decision) Headers() map[string]string {
	h := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(d.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(d.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(d.ResetAt.Unix(), 10),
	}
	if !d.Allowed {
		h["Retry-After"] = strconv.Itoa(int(d.RetryAfter.Seconds() + 0.999))
	}
	return h
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter limiter. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	rules   map[Scope]Rule
	entries map[string]*windowEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a limiter with the given rules (DefaultRules when nil) and
// starts the background sweeper. Close stops the sweeper.
func New(rules map[Scope]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules()
	}
	l := &Limiter{
		rules:   rules,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(30 * time.Second)
	return l
}

// NewWithClock creates a limiter with a custom time source and no
// background sweeper (tests call Sweep directly).
func NewWithClock(rules map[Scope]Rule, now func() time.Time) *Limiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Limiter{
		rules:   rules,
		entries: make(map[string]*windowEntry),
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Allow consumes one slot for (scope, id) and reports the decision.
// Scopes without a rule are always allowed.
func (l *Limiter) Allow(scope Scope, id string) Decision {
	rule, ok := l.rules[scope]
	if !ok || rule.Limit <= 0 {
		return Decision{Allowed: true, Limit: 0, Remaining: 0}
	}

	key := fmt.Sprintf("%s:%s", scope, id)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &windowEntry{count: 0, resetAt: now.Add(rule.Window)}
		l.entries[key] = e
	}

	if e.count >= rule.Limit {
		return Decision{
			Allowed:    false,
			Limit:      rule.Limit,
			Remaining:  0,
			ResetAt:    e.resetAt,
			RetryAfter: e.resetAt.Sub(now),
		}
	}

	e.count++
	return Decision{
		Allowed:   true,
		Limit:     rule.Limit,
		Remaining: rule.Limit - e.count,
		ResetAt:   e.resetAt,
	}
}

// Sweep removes entries whose window has passed. Returns the number of
// reaped entries.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	reaped := 0
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
			reaped++
		}
	}
	return reaped
}

// Len returns the number of live window entries (for diagnostics).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops the background sweeper. Safe to call multiple times.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}
