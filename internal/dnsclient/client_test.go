package dnsclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/verimail/internal/breaker"
	"github.com/optimode/verimail/internal/dnsclient"
)

// fakeProvider scripts one upstream's answers.
type fakeProvider struct {
	name    string
	status  int
	answers []dnsclient.Record
	err     error
	calls   int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Query(_ context.Context, _ string, _ uint16) (int, []dnsclient.Record, error) {
	p.calls++
	return p.status, p.answers, p.err
}

func mxRecord(data string) dnsclient.Record {
	return dnsclient.Record{Type: dnsclient.TypeMX, Data: data}
}

func TestClient_FirstProviderAnswers(t *testing.T) {
	first := &fakeProvider{name: "one", answers: []dnsclient.Record{mxRecord("10 mx.example.com.")}}
	second := &fakeProvider{name: "two"}
	c := dnsclient.New(dnsclient.Config{Providers: []dnsclient.Provider{first, second}})

	res, err := c.Query(context.Background(), "example.com", dnsclient.TypeMX)
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Records, 1)
	assert.Zero(t, second.calls, "the chain stops at the first positive answer")
}

func TestClient_FallsBackOnTransportError(t *testing.T) {
	first := &fakeProvider{name: "one", err: errors.New("timeout")}
	second := &fakeProvider{name: "two", answers: []dnsclient.Record{mxRecord("10 mx.example.com.")}}
	c := dnsclient.New(dnsclient.Config{Providers: []dnsclient.Provider{first, second}})

	res, err := c.Query(context.Background(), "example.com", dnsclient.TypeMX)
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestClient_NegativeAnswerIsNotAnError(t *testing.T) {
	// NXDOMAIN everywhere: well-formed negative, not a failure.
	first := &fakeProvider{name: "one", status: 3}
	second := &fakeProvider{name: "two", status: 3}
	c := dnsclient.New(dnsclient.Config{Providers: []dnsclient.Provider{first, second}})

	res, err := c.Query(context.Background(), "nxdomain.example", dnsclient.TypeA)
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, second.calls, "every provider gets a chance on a negative answer")
}

func TestClient_AllProvidersFailed(t *testing.T) {
	first := &fakeProvider{name: "one", err: errors.New("down")}
	second := &fakeProvider{name: "two", err: errors.New("down")}
	c := dnsclient.New(dnsclient.Config{Providers: []dnsclient.Provider{first, second}})

	_, err := c.Query(context.Background(), "example.com", dnsclient.TypeA)
	assert.ErrorIs(t, err, dnsclient.ErrAllProvidersFailed)
}

func TestClient_BreakerOpensOnRepeatedFailures(t *testing.T) {
	p := &fakeProvider{name: "one", err: errors.New("down")}
	b := breaker.New("dns", breaker.Config{FailureThreshold: 2})
	c := dnsclient.New(dnsclient.Config{Providers: []dnsclient.Provider{p}, Breaker: b})

	ctx := context.Background()
	_, _ = c.Query(ctx, "a.example", dnsclient.TypeA)
	_, _ = c.Query(ctx, "b.example", dnsclient.TypeA)

	_, err := c.Query(ctx, "c.example", dnsclient.TypeA)
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, 2, p.calls, "the open circuit must not touch the network")
}

func TestClient_NegativeAnswersDoNotTripBreaker(t *testing.T) {
	p := &fakeProvider{name: "one", status: 3}
	b := breaker.New("dns", breaker.Config{FailureThreshold: 2})
	c := dnsclient.New(dnsclient.Config{Providers: []dnsclient.Provider{p}, Breaker: b})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		res, err := c.Query(ctx, "nxdomain.example", dnsclient.TypeA)
		assert.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Equal(t, breaker.StateClosed, b.State())
}

func TestMXHosts(t *testing.T) {
	records := []dnsclient.Record{
		mxRecord("20 backup.example.com."),
		mxRecord("10 primary.example.com."),
		{Type: dnsclient.TypeA, Data: "192.0.2.1"},
		mxRecord("garbage"),
	}
	assert.Equal(t, []string{"primary.example.com", "backup.example.com"}, dnsclient.MXHosts(records))
}

func TestTXTStrings(t *testing.T) {
	records := []dnsclient.Record{
		{Type: dnsclient.TypeTXT, Data: `"v=spf1 -all"`},
		{Type: dnsclient.TypeTXT, Data: `"chunk1" "chunk2"`},
		{Type: dnsclient.TypeTXT, Data: `plain`},
		{Type: dnsclient.TypeA, Data: "192.0.2.1"},
	}
	assert.Equal(t, []string{"v=spf1 -all", "chunk1chunk2", "plain"}, dnsclient.TXTStrings(records))
}
