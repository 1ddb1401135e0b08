/*
Package measurement is the concurrent latency measurement engine. It probes a batch of
proxy endpoints in parallel, reduces the noisy timing samples with outlier rejection and
folds latency, packet loss, jitter and success rate into one score between 0 and 100.

Key Components:

  - Settings: raw configuration as decoded by viper; zero values mean "default"
  - Config: normalised, immutable configuration of one run (NewConfig)
  - Reduce: mean and jitter of samples with modified z-score outlier rejection
  - Score: bucketed composite score, always clamped to [0, 100]
  - ShouldFilter: advisory keep/exclude verdict (max latency, 30% success rate)
  - Engine: per-endpoint orchestration and the bounded worker pool
  - Report: results keyed by endpoint, the audit log and the kept set

Per Endpoint:

 1. If the endpoint has an address, ping it up to RetryTimes times, stopping at the first
    attempt with samples and no loss. Samples are reduced to ping_ms and jitter, the loss
    readings of all attempts are averaged.
 2. Issue TestCount HTTP probes, reducing successful latencies to http_ms.
 3. success_rate = (HTTP successes + 1 if ping_ms) / (TestCount + RetryTimes). The
    denominator includes RetryTimes even when the ping probe was skipped.
 4. Score the signals.

Usage Example:

	report := measurement.Measure(ctx, endpoints, measurement.Settings{ConcurrentLimit: measurement.Int(20)},
		measurement.WithLogger(logger))

	for id, res := range report.Results {
		fmt.Printf("%s: score=%.1f\n", id, res.LatencyScore)
	}

Error Handling:

Unreachable endpoints are ordinary results (no ping_ms, 100% loss, low score). A panic
while measuring one endpoint is recovered, logged and recorded as an error log entry
without a result; the other endpoints are unaffected. A failure of the run itself returns
the partial report. Measure never panics.

Thread Safety:

An Engine may be shared; each Measure call owns its Report. Results are collected by a
single goroutine in completion order, so no locking is involved beyond the pool's slots
and the optional probe rate limiter.
*/
package measurement
