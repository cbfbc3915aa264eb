package check_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/optimode/verimail/internal/dnsclient"
)

// fakeDNS is a scriptable DNS provider. Unscripted names get a clean
// NXDOMAIN; failAll turns every query into a transport error.
type fakeDNS struct {
	mu      sync.Mutex
	answers map[string][]dnsclient.Record
	failAll bool
	queries []string
}

func key(name string, qtype uint16) string {
	return fmt.Sprintf("%s/%d", name, qtype)
}

func (p *fakeDNS) set(name string, qtype uint16, records ...dnsclient.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.answers == nil {
		p.answers = make(map[string][]dnsclient.Record)
	}
	p.answers[key(name, qtype)] = records
}

func (p *fakeDNS) setTXT(name string, values ...string) {
	records := make([]dnsclient.Record, 0, len(values))
	for _, v := range values {
		records = append(records, dnsclient.Record{Type: dnsclient.TypeTXT, Data: `"` + v + `"`})
	}
	p.set(name, dnsclient.TypeTXT, records...)
}

func (p *fakeDNS) Name() string { return "fake" }

func (p *fakeDNS) Query(_ context.Context, name string, qtype uint16) (int, []dnsclient.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, key(name, qtype))

	if p.failAll {
		return 0, nil, errors.New("fake transport failure")
	}
	if records, ok := p.answers[key(name, qtype)]; ok {
		return 0, records, nil
	}
	return 3, nil, nil
}

func newTestDNS(p dnsclient.Provider) *dnsclient.Client {
	return dnsclient.New(dnsclient.Config{Providers: []dnsclient.Provider{p}})
}

func mx(data string) dnsclient.Record {
	return dnsclient.Record{Type: dnsclient.TypeMX, Data: data}
}

func aRecord(ip string) dnsclient.Record {
	return dnsclient.Record{Type: dnsclient.TypeA, Data: ip}
}
