package measurement

import (
	"slices"
	"time"
)

// Defaults applied when a setting is absent.
const (
	DefaultTestCount          = 3
	DefaultConcurrentLimit    = 10
	DefaultRetryTimes         = 3
	DefaultMaxLatency         = 5000
	DefaultPingTimeout        = 5
	DefaultHTTPTimeout        = 10
	DefaultHTTPConnectTimeout = 5
	DefaultHTTPReadTimeout    = 5
	DefaultTestURL            = "https://www.google.com"
)

// Lower bounds present settings are clamped to.
const (
	minMaxLatency = 100
	minTimeout    = 1
)

// DefaultLatencyBuckets returns the default ascending scoring buckets in ms.
func DefaultLatencyBuckets() []int {
	return []int{50, 100, 200, 500, 1000}
}

// Settings is the raw measurement configuration as decoded from a config
// file or environment. A nil numeric field means "use the default"; a
// present one, zero included, is clamped to its minimum.
type Settings struct {
	TestCount          *int   `mapstructure:"test_count" yaml:"test_count"`
	ConcurrentLimit    *int   `mapstructure:"concurrent_limit" yaml:"concurrent_limit"`
	RetryTimes         *int   `mapstructure:"retry_times" yaml:"retry_times"`
	MaxLatency         *int   `mapstructure:"max_latency" yaml:"max_latency"`
	PingTimeout        *int   `mapstructure:"ping_timeout" yaml:"ping_timeout"`
	HTTPTimeout        *int   `mapstructure:"http_timeout" yaml:"http_timeout"`
	HTTPConnectTimeout *int   `mapstructure:"http_connect_timeout" yaml:"http_connect_timeout"`
	HTTPReadTimeout    *int   `mapstructure:"http_read_timeout" yaml:"http_read_timeout"`
	TestURL            string `mapstructure:"test_url" yaml:"test_url"`
	DiscardOutliers    *bool  `mapstructure:"discard_outliers" yaml:"discard_outliers"`
	LatencyBuckets     []int  `mapstructure:"latency_buckets" yaml:"latency_buckets"`

	HTTPViaProxy   bool    `mapstructure:"http_via_proxy" yaml:"http_via_proxy"`
	ProbeRateLimit float64 `mapstructure:"probe_rate_limit" yaml:"probe_rate_limit"`
}

// Config is the normalised configuration of one measurement run. It is a
// value type; NewConfig copies every slice it is given.
type Config struct {
	TestCount          int
	ConcurrentLimit    int
	RetryTimes         int
	MaxLatency         float64
	PingTimeout        time.Duration
	HTTPTimeout        time.Duration
	HTTPConnectTimeout time.Duration
	HTTPReadTimeout    time.Duration
	TestURL            string
	DiscardOutliers    bool
	LatencyBuckets     []float64

	HTTPViaProxy bool
	// Probe invocations per second across the whole run, 0 for no limit
	ProbeRateLimit float64
}

// DefaultConfig returns the configuration used when no settings are given.
func DefaultConfig() Config {
	return NewConfig(Settings{})
}

// NewConfig fills absent settings with defaults and clamps the rest to sane
// minimums, so that no input produces a broken run.
func NewConfig(s Settings) Config {
	cfg := Config{
		TestCount:          clampInt(s.TestCount, DefaultTestCount, 1),
		ConcurrentLimit:    clampInt(s.ConcurrentLimit, DefaultConcurrentLimit, 1),
		RetryTimes:         clampInt(s.RetryTimes, DefaultRetryTimes, 1),
		MaxLatency:         float64(clampInt(s.MaxLatency, DefaultMaxLatency, minMaxLatency)),
		PingTimeout:        seconds(clampInt(s.PingTimeout, DefaultPingTimeout, minTimeout)),
		HTTPTimeout:        seconds(clampInt(s.HTTPTimeout, DefaultHTTPTimeout, minTimeout)),
		HTTPConnectTimeout: seconds(clampInt(s.HTTPConnectTimeout, DefaultHTTPConnectTimeout, minTimeout)),
		HTTPReadTimeout:    seconds(clampInt(s.HTTPReadTimeout, DefaultHTTPReadTimeout, minTimeout)),
		TestURL:            s.TestURL,
		DiscardOutliers:    true,
		LatencyBuckets:     normalizeBuckets(s.LatencyBuckets),
		HTTPViaProxy:       s.HTTPViaProxy,
		ProbeRateLimit:     max(s.ProbeRateLimit, 0),
	}
	if cfg.TestURL == "" {
		cfg.TestURL = DefaultTestURL
	}
	if s.DiscardOutliers != nil {
		cfg.DiscardOutliers = *s.DiscardOutliers
	}
	return cfg
}

func clampInt(v *int, def, lo int) int {
	if v == nil {
		return def
	}
	return max(*v, lo)
}

// Int returns a pointer to v, for filling Settings in code.
func Int(v int) *int {
	return &v
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// normalizeBuckets drops non-positive thresholds and sorts the rest
// ascending. An empty result falls back to the defaults.
func normalizeBuckets(in []int) []float64 {
	out := make([]float64, 0, len(in))
	for _, b := range in {
		if b > 0 {
			out = append(out, float64(b))
		}
	}
	if len(out) == 0 {
		for _, b := range DefaultLatencyBuckets() {
			out = append(out, float64(b))
		}
	}
	slices.Sort(out)
	return out
}
