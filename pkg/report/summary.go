package report

import (
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"

	"latency-tester/pkg/measurement"
)

// Distribution holds percentiles of one signal across a batch.
type Distribution struct {
	Count int64   `json:"count"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// Summary describes a whole batch.
type Summary struct {
	Endpoints int          `json:"endpoints"`
	Measured  int          `json:"measured"`
	Kept      int          `json:"kept"`
	Failed    int          `json:"failed"`
	Ping      Distribution `json:"ping_ms"`
	HTTP      Distribution `json:"http_ms"`
	Score     Distribution `json:"score"`
}

// histogram records values with a fixed number of fractional digits.
type histogram struct {
	hist  *hdrhistogram.Histogram
	scale float64
}

func newHistogram(maxValue, scale float64) *histogram {
	// 3 significant figures
	return &histogram{hist: hdrhistogram.New(1, int64(maxValue*scale), 3), scale: scale}
}

func (h *histogram) record(v float64) {
	n := int64(math.Round(v * h.scale))
	if n > h.hist.HighestTrackableValue() {
		n = h.hist.HighestTrackableValue()
	}
	_ = h.hist.RecordValue(max(n, 0))
}

func (h *histogram) distribution() Distribution {
	if h.hist.TotalCount() == 0 {
		return Distribution{}
	}
	return Distribution{
		Count: h.hist.TotalCount(),
		P50:   float64(h.hist.ValueAtQuantile(50)) / h.scale,
		P90:   float64(h.hist.ValueAtQuantile(90)) / h.scale,
		P99:   float64(h.hist.ValueAtQuantile(99)) / h.scale,
		Max:   float64(h.hist.Max()) / h.scale,
	}
}

// Summarize computes batch counts and percentiles. Latencies are tracked in
// microseconds up to ten minutes, scores in hundredths.
func Summarize(r measurement.Report) Summary {
	ping := newHistogram(600_000, 1000)
	httpMs := newHistogram(600_000, 1000)
	score := newHistogram(100, 100)

	for _, res := range r.Results {
		if res.PingMs != nil {
			ping.record(*res.PingMs)
		}
		if res.HTTPMs != nil {
			httpMs.record(*res.HTTPMs)
		}
		score.record(res.LatencyScore)
	}

	return Summary{
		Endpoints: len(r.Logs),
		Measured:  len(r.Results),
		Kept:      len(r.Kept),
		Failed:    failed(r),
		Ping:      ping.distribution(),
		HTTP:      httpMs.distribution(),
		Score:     score.distribution(),
	}
}

func failed(r measurement.Report) int {
	n := 0
	for _, entry := range r.Logs {
		if entry.Error != "" {
			n++
		}
	}
	return n
}
