package check

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"github.com/optimode/verimail/internal/ratelimit"
	"github.com/optimode/verimail/internal/smtpdialog"
	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

// smtpPorts are tried in order for every MX host.
var smtpPorts = []string{"25", "587"}

// smtpRetries is the number of additional attempts per host:port after a
// transport failure.
const smtpRetries = 2

// SMTPProber verifies mailbox existence with a live SMTP dialog. A
// random-address canary detects catch-all servers; 4xx replies are
// recognized as greylisting. Definitive answers are cached, and catch-all
// verdicts are recorded per domain in a shared registry.
type SMTPProber struct {
	cfg      smtpdialog.Config
	limiter  *ratelimit.Limiter
	pacer    *ratelimit.Pacer
	cache    *ttlcache.Cache[types.SMTPCheck]
	catchAll *ttlcache.Cache[types.CatchAllCheck]
	log      *zap.Logger
}

// SMTPProberConfig wires an SMTPProber.
type SMTPProberConfig struct {
	Dialog   smtpdialog.Config
	Limiter  *ratelimit.Limiter                    // per-domain fixed window
	Pacer    *ratelimit.Pacer                      // process-wide pacing, optional
	Cache    *ttlcache.Cache[types.SMTPCheck]      // 1000 entries, 5 min
	CatchAll *ttlcache.Cache[types.CatchAllCheck]  // 500 entries, 1 h
	Logger   *zap.Logger
}

func NewSMTPProber(cfg SMTPProberConfig) *SMTPProber {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPProber{
		cfg:      cfg.Dialog,
		limiter:  cfg.Limiter,
		pacer:    cfg.Pacer,
		cache:    cfg.Cache,
		catchAll: cfg.CatchAll,
		log:      log,
	}
}

// Check probes email against the given MX hosts (callers pass the first
// three). The first definitive answer wins.
func (p *SMTPProber) Check(ctx context.Context, email string, mxHosts []string) types.SMTPCheck {
	key := strings.ToLower(email)
	domain := domainOf(key)

	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			return cached
		}
	}

	if p.limiter != nil {
		if d := p.limiter.Allow(ratelimit.ScopeSMTPDomain, domain); !d.Allowed {
			return types.SMTPCheck{
				Checked: true,
				Exists:  types.ExistsUnknown,
				Message: "Rate limited for this domain",
			}
		}
	}

	if p.pacer != nil {
		if err := p.pacer.Wait(ctx); err != nil {
			return types.SMTPCheck{Checked: true, Exists: types.ExistsUnknown, Message: "probe cancelled"}
		}
	}

	canary := "verify-" + randomToken()
	var lastErr error

	for _, host := range mxHosts {
		for _, port := range smtpPorts {
			for attempt := 0; attempt <= smtpRetries; attempt++ {
				if ctx.Err() != nil {
					return types.SMTPCheck{Checked: true, Exists: types.ExistsUnknown, Message: "probe timed out"}
				}

				out, err := smtpdialog.Probe(ctx, p.cfg, host, port, key, canary)
				if err != nil {
					lastErr = err
					p.log.Debug("smtp dialog failed",
						zap.String("host", host), zap.String("port", port), zap.Error(err))
					continue
				}

				res := interpret(out)
				p.recordCatchAll(domain, out)
				if p.cache != nil && cacheable(res) {
					p.cache.Set(key, res)
				}
				return res
			}
		}
	}

	msg := "no SMTP server answered"
	if lastErr != nil {
		msg = "SMTP probe failed: " + lastErr.Error()
	}
	return types.SMTPCheck{Checked: true, Exists: types.ExistsUnknown, Message: msg}
}

// interpret maps the recipient reply code to a verdict.
func interpret(out smtpdialog.Outcome) types.SMTPCheck {
	res := types.SMTPCheck{
		Checked: true,
		Code:    out.RealCode,
		MXHost:  out.Host,
	}
	randomAccepted := out.RandomCode == 250 || out.RandomCode == 251

	switch out.RealCode {
	case 250, 251:
		if randomAccepted {
			res.Exists = types.ExistsUnknown
			res.CatchAll = true
			res.Message = "server accepts any recipient (catch-all)"
		} else {
			res.Exists = types.ExistsYes
			res.Message = "mailbox exists"
		}
	case 550, 551, 553, 554:
		res.Exists = types.ExistsNo
		res.Message = "mailbox rejected: " + out.RealMessage
	case 450, 451, 452:
		res.Exists = types.ExistsUnknown
		res.Greylisted = true
		res.Message = "temporarily rejected (greylisting)"
	case 252:
		res.Exists = types.ExistsUnknown
		res.Message = "server accepts but will not verify"
	default:
		res.Exists = types.ExistsUnknown
		res.Message = "inconclusive reply: " + out.RealMessage
	}
	return res
}

// cacheable: only definitive answers or catch-all/greylist markers are
// worth remembering.
func cacheable(res types.SMTPCheck) bool {
	return res.Exists != types.ExistsUnknown || res.CatchAll || res.Greylisted
}

// recordCatchAll writes the per-domain catch-all verdict when the canary
// produced a usable signal.
func (p *SMTPProber) recordCatchAll(domain string, out smtpdialog.Outcome) {
	if p.catchAll == nil || out.RandomCode == 0 {
		return
	}
	accepted := out.RandomCode == 250 || out.RandomCode == 251
	p.catchAll.Set(domain, types.CatchAllCheck{Checked: true, IsCatchAll: accepted})
}

// CatchAllFor returns the recorded catch-all verdict for a domain, or a
// Checked=false result when no SMTP evidence exists yet.
func (p *SMTPProber) CatchAllFor(domain string) types.CatchAllCheck {
	if p.catchAll != nil {
		if v, ok := p.catchAll.Get(strings.ToLower(domain)); ok {
			return v
		}
	}
	return types.CatchAllCheck{Checked: false, Message: "no SMTP evidence for domain"}
}

func domainOf(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return email
}

func randomToken() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "probe0000000"
	}
	return hex.EncodeToString(b)
}
