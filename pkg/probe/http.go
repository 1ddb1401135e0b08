package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"latency-tester/pkg/fetch"
	"latency-tester/pkg/models"
	"latency-tester/pkg/proxy"
)

// Only a prefix of the body is read so that payload size does not skew timing.
const httpBodyPrefix = 1024

// HTTPResult is the outcome of one timed GET. LatencyMs is only meaningful
// when OK is true.
type HTTPResult struct {
	LatencyMs float64
	OK        bool
	Err       error
}

// HTTPProber times GET requests against a fixed reference URL.
type HTTPProber struct {
	URL            string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// ViaProxy routes requests through the endpoint being measured
	ViaProxy bool
	Logger   *slog.Logger

	now func() time.Time
}

// NewHTTPProber returns a prober that issues direct requests to url.
func NewHTTPProber(url string, timeout, connectTimeout, readTimeout time.Duration, logger *slog.Logger) *HTTPProber {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProber{
		URL:            url,
		Timeout:        timeout,
		ConnectTimeout: connectTimeout,
		ReadTimeout:    readTimeout,
		Logger:         logger,
		now:            time.Now,
	}
}

func (p *HTTPProber) tunnel(ep models.Endpoint) proxy.Tunnel {
	if !p.ViaProxy {
		return proxy.Direct
	}
	tunnel, err := proxy.ForEndpoint(ep)
	if err != nil {
		p.Logger.Debug("Falling back to direct HTTP probe", "endpoint", ep.ID(), "error", err)
		return proxy.Direct
	}
	return tunnel
}

// Probe issues one GET request for ep. Failures are reported in the result,
// never as a panic.
func (p *HTTPProber) Probe(ctx context.Context, ep models.Endpoint) HTTPResult {
	now := p.now
	if now == nil {
		now = time.Now
	}

	client, err := fetch.NewClient(fetch.Options{
		Tunnel:             p.tunnel(ep),
		ConnectTimeout:     p.ConnectTimeout,
		ReadTimeout:        p.ReadTimeout,
		Timeout:            p.Timeout,
		InsecureSkipVerify: true,
	})
	if err != nil {
		p.Logger.Debug("HTTP test setup failed", "endpoint", ep.ID(), "error", err)
		return HTTPResult{Err: err}
	}
	defer client.CloseIdleConnections()

	start := now()
	res, err := fetch.Fetch(ctx, client, p.URL, fetch.DefaultHeaders, httpBodyPrefix)
	if err != nil {
		p.Logger.Debug("HTTP test failed", "url", p.URL, "endpoint", ep.ID(), "error", err)
		return HTTPResult{Err: err}
	}
	if res.Response.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("%w: %s", ErrHTTPStatus, res.Response.Status)
		p.Logger.Debug("HTTP test failed", "url", p.URL, "endpoint", ep.ID(), "error", err)
		return HTTPResult{Err: err}
	}

	elapsed := now().Sub(start)
	return HTTPResult{LatencyMs: float64(elapsed) / float64(time.Millisecond), OK: true}
}

// ErrHTTPStatus marks responses with a 4xx or 5xx status.
var ErrHTTPStatus = errors.New("unexpected HTTP status")
