// Package fetch provides functionality to make HTTP requests through various transports
package fetch

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/Jigsaw-Code/outline-sdk/transport"
	"github.com/Jigsaw-Code/outline-sdk/x/configurl"

	"latency-tester/pkg/proxy"
)

// DefaultHeaders mimic a generic desktop browser.
var DefaultHeaders = []string{
	"User-Agent: Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept: text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language: en-US,en;q=0.9",
	"Connection: close",
}

// Options contains all the configuration options for building a client
type Options struct {
	// Route taken to the target. The zero value is a direct connection
	Tunnel proxy.Tunnel
	// Dial timeout (default: 5s)
	ConnectTimeout time.Duration
	// Time to wait for response headers once the request is written (default: 5s)
	ReadTimeout time.Duration
	// Whole request timeout (default: 10s)
	Timeout time.Duration
	// Skip TLS certificate verification
	InsecureSkipVerify bool
}

// Result contains the response from a fetch request
type Result struct {
	// HTTP response, body already closed
	Response *http.Response
	// At most the requested prefix of the body
	Body []byte
}

func (o *Options) setDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 5 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
}

// NewClient builds an HTTP client that reaches its targets through opts.Tunnel.
// Redirects are not followed.
func NewClient(opts Options) (*http.Client, error) {
	opts.setDefaults()

	base := &transport.TCPDialer{Dialer: net.Dialer{Timeout: opts.ConnectTimeout}}

	httpTransport := &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify},
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		DisableKeepAlives:     true,
	}

	switch opts.Tunnel.Kind {
	case proxy.KindHTTPProxy:
		if opts.Tunnel.ProxyURL == nil {
			return nil, fmt.Errorf("http proxy tunnel without proxy URL")
		}
		httpTransport.Proxy = http.ProxyURL(opts.Tunnel.ProxyURL)
		httpTransport.DialContext = base.Dialer.DialContext
	case proxy.KindDialer:
		configToDialer := configurl.NewDefaultConfigToDialer()
		configToDialer.BaseStreamDialer = base
		dialer, err := configToDialer.NewStreamDialer(opts.Tunnel.Transport)
		if err != nil {
			return nil, fmt.Errorf("could not create dialer: %w", err)
		}
		httpTransport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if !strings.HasPrefix(network, "tcp") {
				return nil, fmt.Errorf("protocol not supported: %v", network)
			}
			return dialer.DialStream(ctx, addr)
		}
	default:
		httpTransport.DialContext = base.Dialer.DialContext
	}

	return &http.Client{
		Transport: httpTransport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// Fetch issues a GET for url and reads at most maxBody bytes of the response
// body. A negative maxBody reads the whole body.
func Fetch(ctx context.Context, client *http.Client, url string, headers []string, maxBody int64) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Process headers
	if len(headers) > 0 {
		headerText := strings.Join(headers, "\r\n") + "\r\n\r\n"
		h, err := textproto.NewReader(bufio.NewReader(strings.NewReader(headerText))).ReadMIMEHeader()
		if err != nil {
			return nil, fmt.Errorf("invalid header line: %w", err)
		}
		for name, values := range h {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if maxBody >= 0 {
		body = io.LimitReader(resp.Body, maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read of page body failed: %w", err)
	}

	return &Result{
		Response: resp,
		Body:     data,
	}, nil
}
