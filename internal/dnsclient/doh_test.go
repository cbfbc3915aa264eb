package dnsclient_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/verimail/internal/dnsclient"
)

func TestDoHProvider_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve", r.URL.Path)
		assert.Equal(t, "example.com", r.URL.Query().Get("name"))
		assert.Equal(t, "MX", r.URL.Query().Get("type"))
		assert.Equal(t, "application/dns-json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/dns-json")
		fmt.Fprint(w, `{"Status":0,"Answer":[
			{"type":15,"data":"10 mx1.example.com."},
			{"type":15,"data":"20 mx2.example.com."}
		]}`)
	}))
	defer srv.Close()

	p := dnsclient.NewDoHProviderURL("test", srv.URL, srv.Client())
	status, records, err := p.Query(context.Background(), "example.com", dnsclient.TypeMX)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Len(t, records, 2)
	assert.Equal(t, "10 mx1.example.com.", records[0].Data)
}

func TestDoHProvider_NXDOMAINIsWellFormed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"Status":3}`)
	}))
	defer srv.Close()

	p := dnsclient.NewDoHProviderURL("test", srv.URL, srv.Client())
	status, records, err := p.Query(context.Background(), "nxdomain.example", dnsclient.TypeA)
	assert.NoError(t, err)
	assert.Equal(t, 3, status)
	assert.Empty(t, records)
}

func TestDoHProvider_ServfailIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"Status":2}`)
	}))
	defer srv.Close()

	p := dnsclient.NewDoHProviderURL("test", srv.URL, srv.Client())
	_, _, err := p.Query(context.Background(), "example.com", dnsclient.TypeA)
	assert.Error(t, err)
}

func TestDoHProvider_HTTPErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := dnsclient.NewDoHProviderURL("test", srv.URL, srv.Client())
	_, _, err := p.Query(context.Background(), "example.com", dnsclient.TypeA)
	assert.Error(t, err)
}
