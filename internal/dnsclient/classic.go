package dnsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// ClassicProvider speaks plain DNS (UDP with TCP fallback) to a single
// resolver address. It sits last in the default chain so validation keeps
// working when the DoH endpoints are unreachable.
type ClassicProvider struct {
	addr   string
	client *dns.Client
}

// NewClassicProvider creates a provider for the given resolver address,
// e.g. "8.8.8.8:53".
func NewClassicProvider(addr string) *ClassicProvider {
	return &ClassicProvider{
		addr:   addr,
		client: &dns.Client{},
	}
}

func (p *ClassicProvider) Name() string { return "classic:" + p.addr }

func (p *ClassicProvider) Query(ctx context.Context, name string, qtype uint16) (int, []Record, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	in, _, err := p.client.ExchangeContext(ctx, msg, p.addr)
	if err != nil {
		return 0, nil, fmt.Errorf("classic dns: %w", err)
	}
	if in.Truncated {
		tcp := &dns.Client{Net: "tcp"}
		in, _, err = tcp.ExchangeContext(ctx, msg, p.addr)
		if err != nil {
			return 0, nil, fmt.Errorf("classic dns (tcp): %w", err)
		}
	}

	records := make([]Record, 0, len(in.Answer))
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			records = append(records, Record{Type: TypeA, Data: v.A.String()})
		case *dns.MX:
			records = append(records, Record{Type: TypeMX, Data: fmt.Sprintf("%d %s", v.Preference, v.Mx)})
		case *dns.TXT:
			records = append(records, Record{Type: TypeTXT, Data: strings.Join(v.Txt, "")})
		}
	}

	return in.Rcode, records, nil
}
