package measurement

// Deduction caps of the composite score.
const (
	maxLatencyDeduction  = 20.0
	overheadDeduction    = 5.0
	overheadRatio        = 5.0
	maxLossDeduction     = 30.0
	lossWeight           = 0.3
	maxJitterDeduction   = 10.0
	jitterReferenceMs    = 50.0
	successRateDeduction = 40.0

	// MinSuccessRate is the success rate below which an endpoint is filtered.
	MinSuccessRate = 0.30
)

// Score folds the measured signals into a value in [0, 100]. A nil pingMs
// skips both latency deductions.
func Score(pingMs, httpMs *float64, packetLoss, successRate, jitter float64, cfg Config) float64 {
	score := 100.0

	if pingMs != nil {
		ping := *pingMs
		deduction := maxLatencyDeduction
		for _, bucket := range cfg.LatencyBuckets {
			if ping <= bucket {
				deduction = ping / bucket * maxLatencyDeduction
				break
			}
		}
		score -= deduction

		// HTTP much slower than ICMP hints at proxy overhead or congestion
		if httpMs != nil && *httpMs/(ping+1) > overheadRatio {
			score -= overheadDeduction
		}
	}

	score -= min(packetLoss*lossWeight, maxLossDeduction)
	score -= min(jitter/jitterReferenceMs*maxJitterDeduction, maxJitterDeduction)

	if successRate < 1.0 {
		score -= (1.0 - successRate) * successRateDeduction
	}

	return clamp(score, 0, 100)
}

// ShouldFilter reports whether a result is excluded from the kept set.
func ShouldFilter(r Result, cfg Config) bool {
	if r.PingMs != nil && *r.PingMs > cfg.MaxLatency {
		return true
	}
	if r.HTTPMs != nil && *r.HTTPMs > cfg.MaxLatency {
		return true
	}
	return r.SuccessRate < MinSuccessRate
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
