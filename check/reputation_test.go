package check_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/verimail/check"
	"github.com/optimode/verimail/internal/datasets"
	"github.com/optimode/verimail/types"
)

// rdapServer serves a registration event for every domain asked.
func rdapServer(t *testing.T, registered time.Time) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/rdap+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/rdap+json")
		fmt.Fprintf(w, `{"events":[
			{"eventAction":"last changed","eventDate":"2024-01-01T00:00:00Z"},
			{"eventAction":"registration","eventDate":%q}
		]}`, registered.Format(time.RFC3339))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRepChecker(srv *httptest.Server, dns *fakeDNS, now time.Time) *check.ReputationChecker {
	c := check.NewReputationChecker(check.NewBlacklistChecker(newTestDNS(dns), nil), nil)
	if srv != nil {
		c.SetRDAPBases(map[string]string{"com": srv.URL, "xyz": srv.URL})
		c.SetHTTPClient(srv.Client())
	}
	c.SetClock(func() time.Time { return now })
	return c
}

func TestReputationChecker_EstablishedCleanDomain(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	srv := rdapServer(t, now.AddDate(-5, 0, 0))
	c := newRepChecker(srv, &fakeDNS{}, now)

	res := c.Check(context.Background(), "example.com")
	assert.True(t, res.Checked)
	assert.NotNil(t, res.Age.AgeInDays)
	assert.False(t, res.Age.IsNew)

	// 70 + 20 (established) + 15 (clean) + 10 (premium TLD), clamped to 100
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, types.RepRiskLow, res.Risk)
	assert.Equal(t, factorNames(res), []string{"Established Domain", "Clean Record", "Premium TLD"})
}

func TestReputationChecker_VeryNewDomain(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	srv := rdapServer(t, now.AddDate(0, 0, -3))
	c := newRepChecker(srv, &fakeDNS{}, now)

	res := c.Check(context.Background(), "fresh.com")
	assert.True(t, res.Age.IsNew)

	// 70 - 40 (very new) + 15 (clean) + 10 (premium TLD)
	assert.Equal(t, 55, res.Score)
	assert.Equal(t, types.RepRiskHigh, res.Risk)
}

func TestReputationChecker_BlocklistedHighRiskTLD(t *testing.T) {
	now := time.Now()
	dns := &fakeDNS{}
	dns.set("spammy.xyz."+datasets.DNSBLZones[0], 1, aRecord("127.0.1.2"))
	c := newRepChecker(nil, dns, now)

	res := c.Check(context.Background(), "spammy.xyz")
	assert.Equal(t, "Domain age could not be determined", res.Age.Message)
	assert.Equal(t, []string{datasets.DNSBLZones[0]}, res.Listings)

	// 70 - 30 (one listing) - 15 (high-risk TLD)
	assert.Equal(t, 25, res.Score)
	assert.Equal(t, types.RepRiskCritical, res.Risk)
}

func TestReputationChecker_LexicalPatterns(t *testing.T) {
	now := time.Now()
	c := newRepChecker(nil, &fakeDNS{}, now)

	res := c.Check(context.Background(), "win-free-crypto-now12345.example")
	names := factorNames(res)
	assert.Contains(t, names, "Excessive Hyphens")
	assert.Contains(t, names, "Excessive Digits")
}

func TestReputationChecker_UnsupportedTLDAgeUnknown(t *testing.T) {
	c := newRepChecker(nil, &fakeDNS{}, time.Now())

	res := c.Check(context.Background(), "example.example")
	assert.Nil(t, res.Age.AgeInDays)
	assert.Equal(t, "Domain age could not be determined", res.Age.Message)
}

func factorNames(res types.ReputationCheck) []string {
	names := make([]string, 0, len(res.Factors))
	for _, f := range res.Factors {
		names = append(names, f.Name)
	}
	return names
}
