package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"latency-tester/pkg/proxy"
)

func TestFetchDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Language"); got != "en-US,en;q=0.9" {
			t.Errorf("Accept-Language = %q", got)
		}
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	res, err := Fetch(context.Background(), client, srv.URL, DefaultHeaders, 1024)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Response.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.Response.StatusCode)
	}
	if len(res.Body) != 1024 {
		t.Errorf("len(body) = %d, want 1024", len(res.Body))
	}
}

func TestFetchDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	res, err := Fetch(context.Background(), client, srv.URL, nil, -1)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Response.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", res.Response.StatusCode, http.StatusFound)
	}
}

func TestFetchThroughHTTPProxy(t *testing.T) {
	var proxied string
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = r.URL.String()
		w.Write([]byte("via proxy"))
	}))
	defer proxySrv.Close()

	proxyURL, _ := url.Parse(proxySrv.URL)
	client, err := NewClient(Options{Tunnel: proxy.Tunnel{Kind: proxy.KindHTTPProxy, ProxyURL: proxyURL}})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	res, err := Fetch(context.Background(), client, "http://target.invalid/generate_204", nil, -1)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(res.Body) != "via proxy" {
		t.Errorf("body = %q", res.Body)
	}
	if proxied != "http://target.invalid/generate_204" {
		t.Errorf("proxy saw %q", proxied)
	}
}

func TestFetchInvalidHeader(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := Fetch(context.Background(), client, "http://127.0.0.1:1/", []string{"not a header"}, -1); err == nil {
		t.Fatal("expected error for malformed header line")
	}
}

func TestNewClientRejectsBadTransport(t *testing.T) {
	if _, err := NewClient(Options{Tunnel: proxy.Tunnel{Kind: proxy.KindDialer, Transport: "nosuchscheme://x"}}); err == nil {
		t.Fatal("expected error for unknown transport scheme")
	}
	if _, err := NewClient(Options{Tunnel: proxy.Tunnel{Kind: proxy.KindHTTPProxy}}); err == nil {
		t.Fatal("expected error for http proxy without URL")
	}
}
