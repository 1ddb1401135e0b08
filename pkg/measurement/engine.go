package measurement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"latency-tester/pkg/models"
	"latency-tester/pkg/probe"
)

// Result is the measurement of one endpoint. It is not modified after the
// engine hands it out.
type Result struct {
	PingMs       *float64 `json:"ping_ms"`
	HTTPMs       *float64 `json:"http_ms"`
	PacketLoss   float64  `json:"packet_loss"`
	SuccessRate  float64  `json:"success_rate"`
	LatencyScore float64  `json:"latency_score"`
	Jitter       float64  `json:"jitter"`
}

// Pinger is the RTT probe used for endpoints with an address.
type Pinger interface {
	Ping(ctx context.Context, host string) probe.PingResult
}

// HTTPProber is the HTTP latency probe.
type HTTPProber interface {
	Probe(ctx context.Context, ep models.Endpoint) probe.HTTPResult
}

// Engine measures batches of endpoints with one immutable Config.
type Engine struct {
	cfg      Config
	pinger   Pinger
	http     HTTPProber
	limiter  *rate.Limiter
	logger   *slog.Logger
	onResult func(LogEntry)
	now      func() time.Time
	newRunID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPinger replaces the ICMP probe.
func WithPinger(p Pinger) Option {
	return func(e *Engine) {
		if p != nil {
			e.pinger = p
		}
	}
}

// WithHTTPProber replaces the HTTP probe.
func WithHTTPProber(p HTTPProber) Option {
	return func(e *Engine) {
		if p != nil {
			e.http = p
		}
	}
}

// WithOnResult registers a hook called from the collecting goroutine for
// every completed endpoint, in completion order.
func WithOnResult(fn func(LogEntry)) Option {
	return func(e *Engine) {
		e.onResult = fn
	}
}

// WithNow sets the clock used for run and log entry timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunID sets the generator of Report.RunID.
func WithRunID(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// NewEngine returns an engine for cfg. Probes default to the system ping
// command and a direct or tunnelled HTTP GET of cfg.TestURL.
func NewEngine(cfg Config, opts ...Option) *Engine {
	cfg.LatencyBuckets = append([]float64(nil), cfg.LatencyBuckets...)
	e := &Engine{
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
		newRunID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pinger == nil {
		e.pinger = probe.NewPinger(cfg.TestCount, cfg.PingTimeout, e.logger)
	}
	if e.http == nil {
		p := probe.NewHTTPProber(cfg.TestURL, cfg.HTTPTimeout, cfg.HTTPConnectTimeout, cfg.HTTPReadTimeout, e.logger)
		p.ViaProxy = cfg.HTTPViaProxy
		e.http = p
	}
	if cfg.ProbeRateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.ProbeRateLimit), 1)
	}
	return e
}

// Config returns the configuration the engine runs with.
func (e *Engine) Config() Config {
	return e.cfg
}

// wait blocks until the next probe may start.
func (e *Engine) wait(ctx context.Context) error {
	if e.limiter != nil {
		return e.limiter.Wait(ctx)
	}
	return ctx.Err()
}

// measureEndpoint runs both probes for ep and scores the outcome. Panics are
// left to the caller.
func (e *Engine) measureEndpoint(ctx context.Context, ep models.Endpoint) Result {
	var res Result

	if ep.Server != "" {
		var samples, losses []float64
		for attempt := 0; attempt < e.cfg.RetryTimes; attempt++ {
			if err := e.wait(ctx); err != nil {
				break
			}
			pr := e.pinger.Ping(ctx, ep.Server)
			samples = append(samples, pr.Samples...)
			losses = append(losses, pr.PacketLoss)
			if len(pr.Samples) > 0 && pr.PacketLoss == 0 {
				break
			}
		}

		if len(samples) > 0 {
			avg, jitter := Reduce(samples, e.cfg.DiscardOutliers)
			res.PingMs = &avg
			res.Jitter = jitter
		}
		if len(losses) > 0 {
			res.PacketLoss = mean(losses)
		}
	}

	var latencies []float64
	for attempt := 0; attempt < e.cfg.TestCount; attempt++ {
		if err := e.wait(ctx); err != nil {
			break
		}
		if hr := e.http.Probe(ctx, ep); hr.OK {
			latencies = append(latencies, hr.LatencyMs)
		}
	}
	if len(latencies) > 0 {
		avg, _ := Reduce(latencies, e.cfg.DiscardOutliers)
		res.HTTPMs = &avg
	}

	// RTT counts as one possible success out of RetryTimes, even when skipped
	total := e.cfg.TestCount + e.cfg.RetryTimes
	successes := len(latencies)
	if res.PingMs != nil {
		successes++
	}
	if total > 0 {
		res.SuccessRate = float64(successes) / float64(total)
	}

	res.LatencyScore = Score(res.PingMs, res.HTTPMs, res.PacketLoss, res.SuccessRate, res.Jitter, e.cfg)
	return res
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
