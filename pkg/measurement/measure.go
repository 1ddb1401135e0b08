package measurement

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"latency-tester/pkg/models"
)

// LogEntry is the audit record of one endpoint in one run. Exactly one of
// Measurements and Error is set.
type LogEntry struct {
	RunID        string    `json:"run_id"`
	EndpointID   string    `json:"endpoint_id"`
	Timestamp    time.Time `json:"timestamp"`
	Measurements *Result   `json:"measurements,omitempty"`
	Error        string    `json:"error,omitempty"`
	Kept         bool      `json:"kept"`
}

// Report is everything one run produced. Logs and Kept are in completion
// order.
type Report struct {
	RunID     string            `json:"run_id"`
	Config    Config            `json:"-"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Results   map[string]Result `json:"results"`
	Logs      []LogEntry        `json:"logs"`
	Kept      []string          `json:"kept"`
}

type outcome struct {
	id     string
	result Result
	err    error
}

// Measure normalises settings and measures endpoints with a new Engine.
func Measure(ctx context.Context, endpoints []models.Endpoint, settings Settings, opts ...Option) Report {
	if len(endpoints) == 0 {
		return Report{Results: map[string]Result{}, Logs: []LogEntry{}, Kept: []string{}}
	}
	return NewEngine(NewConfig(settings), opts...).Measure(ctx, endpoints)
}

// Measure runs every endpoint on a pool of at most ConcurrentLimit
// goroutines. A failing endpoint becomes an error log entry; a failure of the
// run itself returns what was collected so far. Measure never panics.
func (e *Engine) Measure(ctx context.Context, endpoints []models.Endpoint) (report Report) {
	report = Report{Results: map[string]Result{}, Logs: []LogEntry{}, Kept: []string{}, Config: e.cfg}
	if len(endpoints) == 0 {
		return report
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Latency measurement failed",
				"run", report.RunID,
				"collected", len(report.Logs),
				"error", r,
				"stack", string(debug.Stack()))
		}
		report.Duration = time.Since(started)
	}()

	report.RunID = e.newRunID()
	report.StartedAt = e.now()

	e.logger.Info("Starting measurements",
		"run", report.RunID,
		"endpoints", len(endpoints),
		"concurrency", e.cfg.ConcurrentLimit)

	outcomes := make(chan outcome, len(endpoints))
	var g errgroup.Group
	g.SetLimit(max(e.cfg.ConcurrentLimit, 1))

	go func() {
		for _, ep := range endpoints {
			ep := ep
			g.Go(func() error {
				outcomes <- e.run(ctx, ep)
				return nil
			})
		}
		g.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		e.collect(&report, o)
	}

	e.logger.Info("Measurements completed",
		"run", report.RunID,
		"measured", len(report.Results),
		"kept", len(report.Kept),
		"failed", len(report.Logs)-len(report.Results))

	return report
}

// run measures one endpoint, turning a panic into an error outcome.
func (e *Engine) run(ctx context.Context, ep models.Endpoint) (o outcome) {
	o.id = ep.ID()
	defer func() {
		if r := recover(); r != nil {
			o.err = fmt.Errorf("panic measuring endpoint: %v", r)
			e.logger.Debug("Endpoint measurement panicked", "endpoint", o.id, "stack", string(debug.Stack()))
		}
	}()
	o.result = e.measureEndpoint(ctx, ep)
	return o
}

func (e *Engine) collect(report *Report, o outcome) {
	entry := LogEntry{
		RunID:      report.RunID,
		EndpointID: o.id,
		Timestamp:  e.now(),
	}

	if o.err != nil {
		entry.Error = o.err.Error()
		report.Logs = append(report.Logs, entry)
		e.logger.Error("Failed to measure endpoint", "endpoint", o.id, "error", o.err)
	} else {
		res := o.result
		report.Results[o.id] = res
		entry.Measurements = &res
		entry.Kept = !ShouldFilter(res, e.cfg)
		if entry.Kept {
			report.Kept = append(report.Kept, o.id)
		}
		report.Logs = append(report.Logs, entry)

		e.logger.Debug("Measured endpoint",
			"endpoint", o.id,
			"ping_ms", fmtOptional(res.PingMs),
			"http_ms", fmtOptional(res.HTTPMs),
			"loss", res.PacketLoss,
			"score", fmt.Sprintf("%.1f", res.LatencyScore),
			"kept", entry.Kept)
	}

	if e.onResult != nil {
		e.onResult(entry)
	}
}

func fmtOptional(v *float64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%.1f", *v)
}
