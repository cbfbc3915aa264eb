package verimail

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optimode/verimail/check"
	"github.com/optimode/verimail/internal/breaker"
	"github.com/optimode/verimail/internal/coalesce"
	"github.com/optimode/verimail/internal/dnsclient"
	"github.com/optimode/verimail/internal/metrics"
	"github.com/optimode/verimail/internal/parse"
	"github.com/optimode/verimail/internal/ratelimit"
	"github.com/optimode/verimail/internal/resultcache"
	"github.com/optimode/verimail/internal/sanitize"
	"github.com/optimode/verimail/internal/smtpdialog"
	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

// Cache sizing. Capacities and TTLs are fixed per cache.
const (
	domainCacheSize = 2000
	domainTTL       = 10 * time.Minute

	mxCacheSize = 2000
	mxTTL       = 5 * time.Minute

	resultCacheSize = 1000
	resultTTL       = 5 * time.Minute

	blacklistCacheSize = 1000
	blacklistTTL       = 30 * time.Minute

	smtpCacheSize = 1000
	smtpTTL       = 5 * time.Minute

	catchAllCacheSize = 500
	catchAllTTL       = time.Hour

	authCacheSize = 500
	authTTL       = 10 * time.Minute

	reputationCacheSize = 500
	reputationTTL       = 30 * time.Minute

	gravatarCacheSize = 500
	gravatarTTL       = time.Hour
)

// maxSMTPHosts caps how many MX hosts the live probe will try.
const maxSMTPHosts = 3

// Validator is the validation engine. Create one with New and share it;
// all methods are safe for concurrent use.
type Validator struct {
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics

	dns     *dnsclient.Client
	breaker *breaker.Breaker
	limiter *ratelimit.Limiter
	flights coalesce.Group[ValidationResult]

	results   resultcache.Cache[ValidationResult]
	resultMem *ttlcache.Cache[ValidationResult] // nil when an external backend is used

	domainCache     *ttlcache.Cache[types.DomainCheck]
	mxCache         *ttlcache.Cache[types.MXCheck]
	blacklistCache  *ttlcache.Cache[types.BlacklistCheck]
	smtpCache       *ttlcache.Cache[types.SMTPCheck]
	catchAllCache   *ttlcache.Cache[types.CatchAllCheck]
	authCache       *ttlcache.Cache[types.AuthCheck]
	reputationCache *ttlcache.Cache[types.ReputationCheck]
	gravatarCache   *ttlcache.Cache[types.GravatarCheck]

	syntax       *check.SyntaxChecker
	domain       *check.DomainChecker
	mx           *check.MXChecker
	disposable   *check.DisposableChecker
	role         *check.RoleChecker
	typo         *check.TypoChecker
	freeProvider *check.FreeProviderChecker
	blacklist    *check.BlacklistChecker
	smtp         *check.SMTPProber
	auth         *check.AuthChecker
	reputation   *check.ReputationChecker
	gravatar     *check.GravatarChecker

	mu     sync.Mutex
	closed bool
}

// New creates a Validator from cfg. Call Close when done to release the
// limiter's background sweeper.
func New(cfg Config) *Validator {
	cfg = cfg.withDefaults()

	v := &Validator{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: metrics.New(cfg.Metrics),
		limiter: ratelimit.New(cfg.RateRules),
	}

	v.breaker = breaker.New("dns-providers", breaker.Config{
		OnStateChange: func(name string, from, to breaker.State) {
			v.metrics.SetBreakerState(name, string(to))
			v.log.Warn("breaker state change",
				zap.String("breaker", name),
				zap.String("from", string(from)),
				zap.String("to", string(to)))
		},
	})

	providers := cfg.DNSProviders
	if len(providers) == 0 {
		providers = []dnsclient.Provider{
			dnsclient.NewDoHProvider("dns.google", nil),
			dnsclient.NewDoHProvider("cloudflare-dns.com", nil),
			dnsclient.NewClassicProvider(cfg.ClassicDNSAddr),
		}
	}
	v.dns = dnsclient.New(dnsclient.Config{
		Providers: providers,
		Timeout:   cfg.DNSTimeout,
		Breaker:   v.breaker,
		Logger:    cfg.Logger,
	})

	v.domainCache = ttlcache.New[types.DomainCheck](domainCacheSize, domainTTL)
	v.mxCache = ttlcache.New[types.MXCheck](mxCacheSize, mxTTL)
	v.blacklistCache = ttlcache.New[types.BlacklistCheck](blacklistCacheSize, blacklistTTL)
	v.smtpCache = ttlcache.New[types.SMTPCheck](smtpCacheSize, smtpTTL)
	v.catchAllCache = ttlcache.New[types.CatchAllCheck](catchAllCacheSize, catchAllTTL)
	v.authCache = ttlcache.New[types.AuthCheck](authCacheSize, authTTL)
	v.reputationCache = ttlcache.New[types.ReputationCheck](reputationCacheSize, reputationTTL)
	v.gravatarCache = ttlcache.New[types.GravatarCheck](gravatarCacheSize, gravatarTTL)

	if rc := cfg.resultCache(); rc != nil {
		v.results = rc
	} else {
		v.resultMem = ttlcache.New[ValidationResult](resultCacheSize, resultTTL)
		v.results = resultcache.NewMemory(v.resultMem)
	}

	v.syntax = check.NewSyntaxChecker()
	v.domain = check.NewDomainChecker(v.domainCache)
	v.mx = check.NewMXChecker(v.dns, v.mxCache)
	v.disposable = check.NewDisposableChecker()
	v.role = check.NewRoleChecker()
	v.typo = check.NewTypoChecker()
	v.freeProvider = check.NewFreeProviderChecker()
	v.blacklist = check.NewBlacklistChecker(v.dns, v.blacklistCache)
	v.smtp = check.NewSMTPProber(check.SMTPProberConfig{
		Dialog: smtpdialog.Config{
			HeloDomain: cfg.HeloDomain,
			MailFrom:   cfg.MailFrom,
			Dial:       cfg.SMTPDial,
		},
		Limiter:  v.limiter,
		Pacer:    ratelimit.NewPacer(cfg.SMTPPacePerSecond, 1),
		Cache:    v.smtpCache,
		CatchAll: v.catchAllCache,
		Logger:   cfg.Logger,
	})
	v.auth = check.NewAuthChecker(v.dns, v.authCache)
	v.reputation = check.NewReputationChecker(v.blacklist, v.reputationCache)
	v.gravatar = check.NewGravatarChecker(v.gravatarCache)

	return v
}

// Close releases background resources. The Validator must not be used
// afterwards.
func (v *Validator) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.limiter.Close()
	return nil
}

func (v *Validator) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Validate runs the pipeline for one address. Concurrent calls for the
// same address and option set share a single computation, and completed
// verdicts are served from the result cache for five minutes.
func (v *Validator) Validate(ctx context.Context, email string, opts Options) (ValidationResult, error) {
	if v.isClosed() {
		return ValidationResult{}, ErrClosed
	}
	opts = opts.withDefaults()

	normalized := sanitize.Email(email)
	if normalized == "" {
		return ValidationResult{}, ErrInvalidInput
	}

	if opts.ClientID != "" {
		d := v.limiter.Allow(ratelimit.ScopeSingle, opts.ClientID)
		if !d.Allowed {
			v.metrics.RecordRateLimitDenial(string(ratelimit.ScopeSingle))
			return ValidationResult{}, &RateLimitError{
				Scope:      string(ratelimit.ScopeSingle),
				RetryAfter: d.RetryAfter,
			}
		}
	}

	key := opts.cacheKey(normalized)

	if cached, ok, err := v.results.Get(ctx, key); err == nil && ok {
		v.metrics.RecordCacheHit("result")
		cached.Timestamp = time.Now()
		return cached, nil
	}
	v.metrics.RecordCacheMiss("result")

	// The computation is shared between coalesced callers, so it must not
	// die with the first caller's context.
	workCtx := context.WithoutCancel(ctx)
	res, shared, err := v.flights.Do(ctx, key, func() (ValidationResult, error) {
		r := v.run(workCtx, normalized, opts)
		if cacheableResult(r, opts) {
			if err := v.results.Set(workCtx, key, r); err != nil {
				v.log.Warn("result cache write failed", zap.Error(err))
			}
		}
		return r, nil
	})
	if err != nil {
		return ValidationResult{}, err
	}
	if shared {
		res.Timestamp = time.Now()
	}
	return res, nil
}

// cacheableResult: verdicts where an enabled optional probe never ran
// would pin an incomplete answer for five minutes, so they are not
// written back.
func cacheableResult(r ValidationResult, opts Options) bool {
	if opts.SMTP && (r.Checks.SMTP == nil || !r.Checks.SMTP.Checked) {
		return false
	}
	if opts.Auth && (r.Checks.Auth == nil || !r.Checks.Auth.Checked) {
		return false
	}
	if opts.Reputation && (r.Checks.Reputation == nil || !r.Checks.Reputation.Checked) {
		return false
	}
	if opts.Gravatar && (r.Checks.Gravatar == nil || !r.Checks.Gravatar.Checked) {
		return false
	}
	return true
}

// run executes the full pipeline for one normalized address.
func (v *Validator) run(ctx context.Context, email string, opts Options) ValidationResult {
	requestID := uuid.NewString()
	log := v.log.With(zap.String("requestId", requestID), zap.String("email", email))
	start := time.Now()

	res := ValidationResult{Email: email, Timestamp: start}

	res.Checks.Syntax = v.syntax.Check(email)
	addr := parse.NewAddress(email)
	if !res.Checks.Syntax.Valid || !addr.Valid {
		if res.Checks.Syntax.Valid {
			res.Checks.Syntax = types.SyntaxCheck{Valid: false, Message: "email address could not be parsed"}
		}
		markSkipped(&res.Checks)
		res.Score = 0
		applyVerdicts(&res)
		v.metrics.RecordValidation(string(res.Deliverability), res.Score)
		log.Debug("validation short-circuited on syntax", zap.String("message", res.Checks.Syntax.Message))
		return res
	}

	domain := addr.Domain

	// Network checks fan out; the static list checks are pure lookups and
	// run inline.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer v.observeProbe("mx", time.Now())
		res.Checks.MX = v.mx.Check(ctx, domain)
	}()
	go func() {
		defer wg.Done()
		defer v.observeProbe("blacklist", time.Now())
		res.Checks.Blacklist = v.blacklist.Check(ctx, domain)
	}()

	res.Checks.Domain = v.domain.Check(domain)
	res.Checks.Disposable = v.disposable.Check(domain)
	res.Checks.RoleBased = v.role.Check(addr.Local)
	res.Checks.Typo = v.typo.Check(addr.DomainUnicode)
	res.Checks.FreeProvider = v.freeProvider.Check(domain)
	res.Checks.CatchAll = v.smtp.CatchAllFor(domain)
	wg.Wait()

	v.runOptional(ctx, log, &res, addr, opts)

	res.Score = baseScore(res.Checks)
	applyVerdicts(&res)
	applyAdjustments(&res)

	v.metrics.RecordValidation(string(res.Deliverability), res.Score)
	log.Debug("validation complete",
		zap.Bool("isValid", res.IsValid),
		zap.Int("score", res.Score),
		zap.String("deliverability", string(res.Deliverability)),
		zap.Duration("took", time.Since(start)))
	return res
}

// runOptional fans out the enabled opt-in probes, each under its own
// timeout and panic guard.
func (v *Validator) runOptional(ctx context.Context, log *zap.Logger, res *ValidationResult, addr parse.Address, opts Options) {
	if !opts.anyOptional() {
		return
	}

	var wg sync.WaitGroup

	if opts.SMTP {
		smtp := &types.SMTPCheck{Exists: types.ExistsUnknown}
		res.Checks.SMTP = smtp
		hosts := probeHosts(res.Checks.MX)
		if len(hosts) == 0 {
			smtp.Message = "no MX hosts to probe"
		} else {
			wg.Add(1)
			go v.guardedProbe(&wg, log, "smtp", opts.SMTPTimeout, func(pctx context.Context) {
				*smtp = v.smtp.Check(pctx, addr.Raw, hosts)
			})
		}
	}

	if opts.Auth {
		auth := &types.AuthCheck{}
		res.Checks.Auth = auth
		if res.Checks.Domain.Valid {
			wg.Add(1)
			go v.guardedProbe(&wg, log, "auth", opts.AuthTimeout, func(pctx context.Context) {
				*auth = v.auth.Check(pctx, addr.Domain)
			})
		} else {
			auth.Message = "domain invalid, authentication not checked"
		}
	}

	if opts.Reputation {
		rep := &types.ReputationCheck{}
		res.Checks.Reputation = rep
		if res.Checks.Domain.Valid {
			wg.Add(1)
			go v.guardedProbe(&wg, log, "reputation", opts.ReputationTimeout, func(pctx context.Context) {
				*rep = v.reputation.Check(pctx, addr.Domain)
			})
		} else {
			rep.Message = "domain invalid, reputation not checked"
		}
	}

	if opts.Gravatar {
		grav := &types.GravatarCheck{}
		res.Checks.Gravatar = grav
		wg.Add(1)
		go v.guardedProbe(&wg, log, "gravatar", opts.GravatarTimeout, func(pctx context.Context) {
			*grav = v.gravatar.Check(pctx, addr.Raw)
		})
	}

	wg.Wait()

	// A fresh catch-all verdict may have landed during the SMTP probe.
	if res.Checks.SMTP != nil && res.Checks.SMTP.Checked {
		res.Checks.CatchAll = v.smtp.CatchAllFor(addr.Domain)
	}
}

// guardedProbe runs fn under a timeout and recovers panics so one probe
// cannot take down the validation.
func (v *Validator) guardedProbe(wg *sync.WaitGroup, log *zap.Logger, name string, timeout time.Duration, fn func(ctx context.Context)) {
	defer wg.Done()
	defer v.observeProbe(name, time.Now())
	defer func() {
		if r := recover(); r != nil {
			log.Error("probe panicked", zap.String("probe", name), zap.Any("panic", r))
		}
	}()

	pctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	fn(pctx)
}

func (v *Validator) observeProbe(name string, start time.Time) {
	v.metrics.ObserveProbe(name, time.Since(start))
}

// probeHosts extracts real MX hostnames for the SMTP probe, capped at
// three. The A-record fallback marker is not a host.
func probeHosts(mx types.MXCheck) []string {
	var hosts []string
	for _, r := range mx.Records {
		if r == check.AFallbackMarker {
			continue
		}
		hosts = append(hosts, r)
		if len(hosts) == maxSMTPHosts {
			break
		}
	}
	return hosts
}

// markSkipped tags every downstream check as skipped after a syntax
// failure.
func markSkipped(c *types.Checks) {
	c.Domain = types.DomainCheck{Skipped: true}
	c.MX = types.MXCheck{Skipped: true}
	c.Disposable = types.DisposableCheck{Skipped: true}
	c.RoleBased = types.RoleCheck{Skipped: true}
	c.Typo = types.TypoCheck{Skipped: true}
	c.FreeProvider = types.FreeProviderCheck{Skipped: true}
	c.Blacklist = types.BlacklistCheck{Skipped: true}
	c.CatchAll = types.CatchAllCheck{Skipped: true}
}

// CacheStats reports hit/miss counters for every internal cache. The
// "result" entry is present only with the in-process backend.
func (v *Validator) CacheStats() map[string]ttlcache.Stats {
	stats := map[string]ttlcache.Stats{
		"domain":     v.domainCache.Stats(),
		"mx":         v.mxCache.Stats(),
		"blacklist":  v.blacklistCache.Stats(),
		"smtp":       v.smtpCache.Stats(),
		"catchAll":   v.catchAllCache.Stats(),
		"auth":       v.authCache.Stats(),
		"reputation": v.reputationCache.Stats(),
		"gravatar":   v.gravatarCache.Stats(),
	}
	if v.resultMem != nil {
		stats["result"] = v.resultMem.Stats()
	}
	return stats
}
