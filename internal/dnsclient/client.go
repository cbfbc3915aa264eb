// Package dnsclient answers A/MX/TXT queries over an ordered list of
// providers (DNS-over-HTTPS first, classic DNS as last resort). Provider
// failover is transparent; a circuit breaker guards the whole chain so
// that repeated transport failures shed load fast.
package dnsclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/optimode/verimail/internal/breaker"
)

// Record type codes (RFC 1035 values, matching the dns-json "type" field).
const (
	TypeA   uint16 = 1
	TypeMX  uint16 = 15
	TypeTXT uint16 = 16
)

// Record is one answer record. Data keeps the provider's presentation
// form: MX data is "<priority> <host>." and TXT data may be quoted.
type Record struct {
	Type uint16 `json:"type"`
	Data string `json:"data"`
}

// Result is the outcome of a query. Success is false when every provider
// answered negatively (NXDOMAIN or no matching records).
type Result struct {
	Success bool     `json:"success"`
	Records []Record `json:"records"`
}

// Provider resolves a single query against one upstream.
// status is the DNS RCODE (0 = NOERROR); err is set only for transport
// problems (timeouts, network errors, bad responses).
type Provider interface {
	Name() string
	Query(ctx context.Context, name string, qtype uint16) (status int, answers []Record, err error)
}

// ErrAllProvidersFailed is returned when no provider could be reached.
var ErrAllProvidersFailed = errors.New("dnsclient: all providers failed")

// Client is the provider-chain DNS client.
type Client struct {
	providers []Provider
	breaker   *breaker.Breaker
	timeout   time.Duration
	log       *zap.Logger
}

// Config configures a Client.
type Config struct {
	// Providers is the ordered chain. Default: dns.google DoH,
	// cloudflare-dns.com DoH, classic DNS via 8.8.8.8:53.
	Providers []Provider
	// Timeout is the per-provider timeout for a single query attempt.
	// Default: 5s. DNSBL callers pass a shorter one per query.
	Timeout time.Duration
	// Breaker guards the chain. Optional; without one the client never
	// fails fast.
	Breaker *breaker.Breaker
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	if len(cfg.Providers) == 0 {
		cfg.Providers = []Provider{
			NewDoHProvider("dns.google", nil),
			NewDoHProvider("cloudflare-dns.com", nil),
			NewClassicProvider("8.8.8.8:53"),
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		providers: cfg.Providers,
		breaker:   cfg.Breaker,
		timeout:   cfg.Timeout,
		log:       cfg.Logger,
	}
}

// Query resolves name/qtype with the default per-provider timeout.
func (c *Client) Query(ctx context.Context, name string, qtype uint16) (Result, error) {
	return c.QueryTimeout(ctx, name, qtype, c.timeout)
}

// QueryTimeout resolves name/qtype bounding each provider attempt by
// timeout. When the breaker is open it returns breaker.ErrOpen without
// touching the network; callers should then fall back to stale cached
// data or a neutral result.
func (c *Client) QueryTimeout(ctx context.Context, name string, qtype uint16, timeout time.Duration) (Result, error) {
	var res Result
	run := func() error {
		var err error
		res, err = c.queryProviders(ctx, name, qtype, timeout)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(run)
	} else {
		err = run()
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// queryProviders walks the provider chain. A negative but well-formed
// answer moves on to the next provider and, when every provider agrees,
// yields Success=false with a nil error so the breaker does not count it
// as a failure.
func (c *Client) queryProviders(ctx context.Context, name string, qtype uint16, timeout time.Duration) (Result, error) {
	var lastErr error
	sawNegative := false

	for _, p := range c.providers {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		status, answers, err := p.Query(attemptCtx, name, qtype)
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
			c.log.Debug("dns provider failed",
				zap.String("provider", p.Name()),
				zap.String("name", name),
				zap.Error(err))
			continue
		}

		matched := filterType(answers, qtype)
		if status == 0 && len(matched) > 0 {
			return Result{Success: true, Records: matched}, nil
		}

		// Well-formed negative answer (NXDOMAIN or empty): remember it
		// and give the next provider a chance.
		sawNegative = true
	}

	if sawNegative {
		return Result{Success: false}, nil
	}
	if lastErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
	}
	return Result{}, ErrAllProvidersFailed
}

func filterType(records []Record, qtype uint16) []Record {
	var out []Record
	for _, r := range records {
		if r.Type == qtype {
			out = append(out, r)
		}
	}
	return out
}

// MXHosts extracts hostnames from MX records ("<priority> <host>."),
// sorted by ascending priority, trailing dots stripped.
func MXHosts(records []Record) []string {
	type mx struct {
		pri  int
		host string
	}
	var parsed []mx
	for _, r := range records {
		if r.Type != TypeMX {
			continue
		}
		fields := strings.Fields(r.Data)
		if len(fields) != 2 {
			continue
		}
		pri, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		host := strings.TrimSuffix(fields[1], ".")
		if host == "" {
			continue
		}
		parsed = append(parsed, mx{pri: pri, host: host})
	}
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].pri < parsed[j].pri })

	hosts := make([]string, 0, len(parsed))
	for _, m := range parsed {
		hosts = append(hosts, m.host)
	}
	return hosts
}

// TXTStrings unquotes TXT record data into plain strings.
func TXTStrings(records []Record) []string {
	var out []string
	for _, r := range records {
		if r.Type != TypeTXT {
			continue
		}
		data := strings.TrimSpace(r.Data)
		// dns-json wraps TXT data in quotes; long records are split into
		// quoted chunks that must be concatenated.
		if strings.HasPrefix(data, `"`) {
			parts := strings.Split(data, `"`)
			var sb strings.Builder
			for i, p := range parts {
				if i%2 == 1 {
					sb.WriteString(p)
				}
			}
			data = sb.String()
		}
		if data != "" {
			out = append(out, data)
		}
	}
	return out
}
