package measurement

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"latency-tester/pkg/models"
	"latency-tester/pkg/probe"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 {
	return &v
}

// scriptedPinger returns its results in order, repeating the last one.
type scriptedPinger struct {
	mu      sync.Mutex
	results []probe.PingResult
	calls   int
}

func (p *scriptedPinger) Ping(ctx context.Context, host string) probe.PingResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.results) == 0 {
		return probe.PingResult{}
	}
	i := min(p.calls-1, len(p.results)-1)
	return p.results[i]
}

func (p *scriptedPinger) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type pingFunc func(ctx context.Context, host string) probe.PingResult

func (f pingFunc) Ping(ctx context.Context, host string) probe.PingResult {
	return f(ctx, host)
}

type httpFunc func(ctx context.Context, ep models.Endpoint) probe.HTTPResult

func (f httpFunc) Probe(ctx context.Context, ep models.Endpoint) probe.HTTPResult {
	return f(ctx, ep)
}

func httpOK(ms float64) httpFunc {
	return func(ctx context.Context, ep models.Endpoint) probe.HTTPResult {
		return probe.HTTPResult{LatencyMs: ms, OK: true}
	}
}

func httpDown() httpFunc {
	return func(ctx context.Context, ep models.Endpoint) probe.HTTPResult {
		return probe.HTTPResult{Err: context.DeadlineExceeded}
	}
}
