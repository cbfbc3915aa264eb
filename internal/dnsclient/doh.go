package dnsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// DoHProvider queries the JSON DNS-over-HTTPS API exposed by dns.google
// and cloudflare-dns.com: GET https://<host>/resolve?name=..&type=.. with
// Accept: application/dns-json.
type DoHProvider struct {
	host   string
	client *http.Client
	// baseURL overrides "https://<host>" in tests.
	baseURL string
}

// NewDoHProvider creates a provider for the given host. httpClient may be
// nil; requests are bounded by the per-query context, not a client timeout.
func NewDoHProvider(host string, httpClient *http.Client) *DoHProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &DoHProvider{host: host, client: httpClient}
}

// NewDoHProviderURL creates a provider with an explicit base URL, used by
// tests to point at an httptest server.
func NewDoHProviderURL(name, baseURL string, httpClient *http.Client) *DoHProvider {
	p := NewDoHProvider(name, httpClient)
	p.baseURL = baseURL
	return p
}

func (p *DoHProvider) Name() string { return p.host }

// dohResponse is the dns-json wire shape.
type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Type uint16 `json:"type"`
		Data string `json:"data"`
	} `json:"Answer"`
}

func (p *DoHProvider) Query(ctx context.Context, name string, qtype uint16) (int, []Record, error) {
	base := p.baseURL
	if base == "" {
		base = "https://" + p.host
	}
	u := fmt.Sprintf("%s/resolve?name=%s&type=%s", base, url.QueryEscape(name), typeString(qtype))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, nil, fmt.Errorf("doh: unexpected HTTP status %d", resp.StatusCode)
	}

	var body dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, nil, fmt.Errorf("doh: decode response: %w", err)
	}

	records := make([]Record, 0, len(body.Answer))
	for _, a := range body.Answer {
		records = append(records, Record{Type: a.Type, Data: a.Data})
	}

	// A non-zero status with no answers is not usable; report it as a
	// transport-level problem so the chain moves on, unless it is a
	// clean NXDOMAIN (status 3), which is a well-formed negative.
	if body.Status != 0 && len(records) == 0 && body.Status != 3 {
		return body.Status, nil, fmt.Errorf("doh: status %d with empty answer", body.Status)
	}

	return body.Status, records, nil
}

func typeString(qtype uint16) string {
	switch qtype {
	case TypeA:
		return "A"
	case TypeMX:
		return "MX"
	case TypeTXT:
		return "TXT"
	default:
		return fmt.Sprintf("%d", qtype)
	}
}
