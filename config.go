package verimail

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/optimode/verimail/internal/dnsclient"
	"github.com/optimode/verimail/internal/ratelimit"
	"github.com/optimode/verimail/internal/resultcache"
)

// Config configures a Validator. The zero value is usable: defaults are
// applied by New.
type Config struct {
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger

	// Metrics is the Prometheus registerer to attach collectors to.
	// Nil disables instrumentation.
	Metrics prometheus.Registerer

	// DNSProviders overrides the resolver chain. Default: dns.google DoH,
	// cloudflare-dns.com DoH, then classic DNS at ClassicDNSAddr.
	DNSProviders []dnsclient.Provider
	// ClassicDNSAddr is the classic fallback resolver. Default: 8.8.8.8:53.
	ClassicDNSAddr string
	// DNSTimeout bounds one provider attempt. Default: 5s.
	DNSTimeout time.Duration

	// HeloDomain and MailFrom identify this engine in SMTP dialogs.
	// Defaults: "verifier.local" and "verify@verifier.local".
	HeloDomain string
	MailFrom   string
	// SMTPDial is injectable for testing. Defaults to net.DialTimeout.
	SMTPDial func(network, address string, timeout time.Duration) (net.Conn, error)
	// SMTPPacePerSecond is the process-wide outbound probe pace.
	// Default: 2 probes/second.
	SMTPPacePerSecond float64

	// RateRules overrides the limiter rules. Default: ratelimit.DefaultRules.
	RateRules map[ratelimit.Scope]ratelimit.Rule

	// MaxBulkSize caps ValidateBulk input length. Default: 1000.
	MaxBulkSize int

	// ResultCache overrides the full-result cache backend. Default: the
	// in-process LRU (1000 entries, 5 minute TTL). Set RedisAddr instead
	// to share verdicts between processes.
	ResultCache resultcache.Cache[ValidationResult]
	// RedisAddr, when non-empty and ResultCache is nil, selects the Redis
	// result-cache backend at that address.
	RedisAddr string
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.ClassicDNSAddr == "" {
		c.ClassicDNSAddr = "8.8.8.8:53"
	}
	if c.DNSTimeout <= 0 {
		c.DNSTimeout = 5 * time.Second
	}
	if c.HeloDomain == "" {
		c.HeloDomain = "verifier.local"
	}
	if c.MailFrom == "" {
		c.MailFrom = "verify@" + c.HeloDomain
	}
	if c.SMTPPacePerSecond <= 0 {
		c.SMTPPacePerSecond = 2
	}
	if c.RateRules == nil {
		c.RateRules = ratelimit.DefaultRules()
	}
	if c.MaxBulkSize <= 0 {
		c.MaxBulkSize = 1000
	}
	return c
}

// resultCache materializes the configured full-result backend.
func (c Config) resultCache() resultcache.Cache[ValidationResult] {
	if c.ResultCache != nil {
		return c.ResultCache
	}
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		return resultcache.NewRedis[ValidationResult](client, "verimail:", resultTTL)
	}
	return nil // New falls back to the in-process cache
}

// ConfigFromEnv builds a Config from VERIMAIL_* environment variables,
// loading a .env file first when one exists. Unset variables keep their
// defaults.
//
//	VERIMAIL_HELO_DOMAIN          EHLO/HELO identity
//	VERIMAIL_MAIL_FROM            MAIL FROM address
//	VERIMAIL_CLASSIC_DNS_ADDR     classic fallback resolver (host:port)
//	VERIMAIL_DNS_TIMEOUT_MS       per-provider DNS timeout
//	VERIMAIL_SMTP_PACE_PER_SEC    outbound SMTP probes per second
//	VERIMAIL_MAX_BULK_SIZE        bulk input cap
//	VERIMAIL_REDIS_ADDR           shared result cache (host:port)
//	VERIMAIL_RATE_SINGLE_PER_MIN  single-validation limit per minute
//	VERIMAIL_RATE_BULK_PER_MIN    bulk-request limit per minute
//	VERIMAIL_RATE_SMTP_PER_MIN    SMTP probes per domain per minute
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		HeloDomain:     os.Getenv("VERIMAIL_HELO_DOMAIN"),
		MailFrom:       os.Getenv("VERIMAIL_MAIL_FROM"),
		ClassicDNSAddr: os.Getenv("VERIMAIL_CLASSIC_DNS_ADDR"),
		RedisAddr:      os.Getenv("VERIMAIL_REDIS_ADDR"),
	}
	if ms := envInt("VERIMAIL_DNS_TIMEOUT_MS"); ms > 0 {
		cfg.DNSTimeout = time.Duration(ms) * time.Millisecond
	}
	if f := envFloat("VERIMAIL_SMTP_PACE_PER_SEC"); f > 0 {
		cfg.SMTPPacePerSecond = f
	}
	if n := envInt("VERIMAIL_MAX_BULK_SIZE"); n > 0 {
		cfg.MaxBulkSize = n
	}

	rules := ratelimit.DefaultRules()
	if n := envInt("VERIMAIL_RATE_SINGLE_PER_MIN"); n > 0 {
		rules[ratelimit.ScopeSingle] = ratelimit.Rule{Limit: n, Window: time.Minute}
	}
	if n := envInt("VERIMAIL_RATE_BULK_PER_MIN"); n > 0 {
		rules[ratelimit.ScopeBulk] = ratelimit.Rule{Limit: n, Window: time.Minute}
	}
	if n := envInt("VERIMAIL_RATE_SMTP_PER_MIN"); n > 0 {
		rules[ratelimit.ScopeSMTPDomain] = ratelimit.Rule{Limit: n, Window: time.Minute}
	}
	cfg.RateRules = rules

	return cfg
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envFloat(key string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
