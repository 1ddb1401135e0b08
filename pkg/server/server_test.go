package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"latency-tester/pkg/models"
)

func TestParseAccessKey(t *testing.T) {
	tests := []struct {
		name      string
		accessKey string
		want      models.Endpoint
		wantErr   bool
	}{
		{
			name:      "Shadowsocks link",
			accessKey: "ss://YWVzLTEyOC1nY206c2VjcmV0@192.168.1.1:8388#Tokyo%201",
			want: models.Endpoint{
				Name:      "Tokyo 1",
				Server:    "192.168.1.1",
				Port:      8388,
				Type:      "ss",
				Transport: "ss://YWVzLTEyOC1nY206c2VjcmV0@192.168.1.1:8388",
			},
		},
		{
			name:      "SOCKS5 with credentials",
			accessKey: "socks5://user:pass@[2001:db8::1]:1080#v6",
			want: models.Endpoint{
				Name:     "v6",
				Server:   "2001:db8::1",
				Port:     1080,
				Type:     "socks5",
				Username: "user",
				Password: "pass",
			},
		},
		{
			name:      "HTTP proxy without name",
			accessKey: "HTTP://proxy.example.com:3128",
			want: models.Endpoint{
				Name:   "proxy.example.com:3128",
				Server: "proxy.example.com",
				Port:   3128,
				Type:   "http",
			},
		},
		{name: "Unsupported scheme", accessKey: "vmess://abc@192.168.1.1:443", wantErr: true},
		{name: "No host", accessKey: "invalid-url", wantErr: true},
		{name: "Bad port", accessKey: "http://192.168.1.1:port", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAccessKey(tt.accessKey)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAccessKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseAccessKey() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAccessLinksSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		"# exported list",
		"",
		"ss://YWVzLTEyOC1nY206c2VjcmV0@192.168.1.1:8388#one",
		"not a link",
		"  socks5://192.168.1.2:1080#two  ",
	}, "\n")

	got, err := ParseAccessLinks(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAccessLinks() error = %v", err)
	}
	var names []string
	for _, ep := range got {
		names = append(names, ep.Name)
	}
	if diff := cmp.Diff([]string{"one", "two"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAccessLinksFetchesSSConfig(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/key" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "ss://YWVzLTEyOC1nY206c2VjcmV0@192.0.2.1:8388\n")
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 5 * time.Second
	old := FetchClient
	FetchClient = client
	t.Cleanup(func() { FetchClient = old })

	host := strings.TrimPrefix(srv.URL, "https://")
	input := "ssconfig://" + host + "/key#office\nssconfig://" + host + "/missing#gone\n"

	got, err := ParseAccessLinks(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAccessLinks() error = %v", err)
	}
	want := []models.Endpoint{{
		Name:      "office",
		Server:    "192.0.2.1",
		Port:      8388,
		Type:      "ss",
		Transport: "ss://YWVzLTEyOC1nY206c2VjcmV0@192.0.2.1:8388",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseAccessLinks() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchClientHasTimeout(t *testing.T) {
	if FetchClient == nil || FetchClient.Timeout <= 0 {
		t.Errorf("FetchClient = %+v, want a client with a timeout", FetchClient)
	}
}

func TestParseProxyList(t *testing.T) {
	input := `
proxies:
  - name: hk-ss
    type: SS
    server: 203.0.113.5
    port: 8388
    cipher: aes-128-gcm
    password: secret
  - name: office
    type: http
    server: 203.0.113.6
    port: 3128
    username: alice
    password: pw
  - name: broken-ss
    type: ss
    server: 203.0.113.7
    cipher: aes-128-gcm
`
	got, err := ParseProxyList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseProxyList() error = %v", err)
	}

	want := []models.Endpoint{
		{
			Name: "hk-ss", Type: "ss", Server: "203.0.113.5", Port: 8388,
			Cipher: "aes-128-gcm", Password: "secret",
			Transport: "ss://YWVzLTEyOC1nY206c2VjcmV0@203.0.113.5:8388",
		},
		{Name: "office", Type: "http", Server: "203.0.113.6", Port: 3128, Username: "alice", Password: "pw"},
		{Name: "broken-ss", Type: "ss", Server: "203.0.113.7", Cipher: "aes-128-gcm"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseProxyList() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProxyListEmpty(t *testing.T) {
	got, err := ParseProxyList(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseProxyList() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d endpoints, want 0", len(got))
	}

	if _, err := ParseProxyList(strings.NewReader("proxies: {")); err == nil {
		t.Error("ParseProxyList() accepted malformed YAML")
	}
}

func TestLoadEndpointsByExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "proxies.yml")
	textPath := filepath.Join(dir, "links.txt")
	if err := os.WriteFile(yamlPath, []byte("proxies:\n  - name: a\n    server: 192.0.2.1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(textPath, []byte("http://192.0.2.2:8080#b\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for path, want := range map[string]string{yamlPath: "a", textPath: "b"} {
		got, err := LoadEndpoints(context.Background(), path)
		if err != nil {
			t.Fatalf("LoadEndpoints(%s) error = %v", path, err)
		}
		if len(got) != 1 || got[0].Name != want {
			t.Errorf("LoadEndpoints(%s) = %+v, want one endpoint named %q", path, got, want)
		}
	}

	if _, err := LoadEndpoints(context.Background(), filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("LoadEndpoints() succeeded for a missing file")
	}
}

func TestResolve(t *testing.T) {
	lookup := func(ctx context.Context, host string) ([]netip.Addr, error) {
		switch host {
		case "multi.example.com":
			return []netip.Addr{netip.MustParseAddr("93.184.216.34"), netip.MustParseAddr("2001:db8::1")}, nil
		case "single.example.com":
			return []netip.Addr{netip.MustParseAddr("::ffff:198.51.100.7")}, nil
		}
		return nil, errors.New("no such host")
	}

	in := []models.Endpoint{
		{Name: "ip", Server: "192.168.1.1", Port: 8388},
		{Name: "multi", Server: "multi.example.com", Port: 8388, Transport: "ss://dXNlcjpwYXNz@multi.example.com:8388"},
		{Name: "single", Server: "single.example.com", Port: 443},
		{Name: "dead", Server: "nx.example.com", Port: 80},
		{Name: "no-address"},
	}

	want := []models.Endpoint{
		{Name: "ip", Server: "192.168.1.1", Port: 8388},
		{Name: "multi@93.184.216.34", Server: "93.184.216.34", Port: 8388, Transport: "ss://dXNlcjpwYXNz@93.184.216.34:8388"},
		{Name: "multi@2001:db8::1", Server: "2001:db8::1", Port: 8388, Transport: "ss://dXNlcjpwYXNz@[2001:db8::1]:8388"},
		{Name: "single", Server: "198.51.100.7", Port: 443},
		{Name: "dead", Server: "nx.example.com", Port: 80},
		{Name: "no-address"},
	}

	got := Resolve(context.Background(), in, lookup)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestWithHost(t *testing.T) {
	tests := []struct {
		transport, ip, want string
	}{
		{"ss://a@host.example:8388?prefix=x", "10.0.0.1", "ss://a@10.0.0.1:8388?prefix=x"},
		{"socks5://host.example", "2001:db8::2", "socks5://[2001:db8::2]"},
		{"not a url", "10.0.0.1", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			if got := withHost(tt.transport, tt.ip); got != tt.want {
				t.Errorf("withHost() = %v, want %v", got, tt.want)
			}
		})
	}
}
