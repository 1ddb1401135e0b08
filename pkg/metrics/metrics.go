package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"latency-tester/pkg/measurement"
)

// Collector holds the per-endpoint gauges of the latest report.
type Collector struct {
	registry *prometheus.Registry

	score       *prometheus.GaugeVec
	ping        *prometheus.GaugeVec
	http        *prometheus.GaugeVec
	packetLoss  *prometheus.GaugeVec
	successRate *prometheus.GaugeVec
	jitter      *prometheus.GaugeVec
	kept        *prometheus.GaugeVec
}

func gauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{"endpoint"})
}

// NewCollector returns a Collector registered on its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry:    prometheus.NewRegistry(),
		score:       gauge("proxy_latency_score", "Composite latency score (0-100)"),
		ping:        gauge("proxy_ping_ms", "Average ICMP round trip time in milliseconds"),
		http:        gauge("proxy_http_ms", "Average HTTP request latency in milliseconds"),
		packetLoss:  gauge("proxy_packet_loss_percent", "Average ICMP packet loss in percent"),
		successRate: gauge("proxy_success_rate", "Fraction of successful probes (0-1)"),
		jitter:      gauge("proxy_jitter_ms", "Standard deviation of RTT samples in milliseconds"),
		kept:        gauge("proxy_kept", "1 if the endpoint passed the filter, else 0"),
	}
	c.registry.MustRegister(c.score, c.ping, c.http, c.packetLoss, c.successRate, c.jitter, c.kept)
	return c
}

// Registry returns the registry the gauges live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Collect replaces every gauge with the values of r. Latency gauges are
// omitted for endpoints without that signal.
func (c *Collector) Collect(r measurement.Report) {
	for _, vec := range []*prometheus.GaugeVec{c.score, c.ping, c.http, c.packetLoss, c.successRate, c.jitter, c.kept} {
		vec.Reset()
	}

	kept := make(map[string]bool, len(r.Kept))
	for _, id := range r.Kept {
		kept[id] = true
	}

	for id, res := range r.Results {
		c.score.WithLabelValues(id).Set(res.LatencyScore)
		if res.PingMs != nil {
			c.ping.WithLabelValues(id).Set(*res.PingMs)
		}
		if res.HTTPMs != nil {
			c.http.WithLabelValues(id).Set(*res.HTTPMs)
		}
		c.packetLoss.WithLabelValues(id).Set(res.PacketLoss)
		c.successRate.WithLabelValues(id).Set(res.SuccessRate)
		c.jitter.WithLabelValues(id).Set(res.Jitter)

		var k float64
		if kept[id] {
			k = 1
		}
		c.kept.WithLabelValues(id).Set(k)
	}
}

// WriteTextfile writes the gauges in the text exposition format, for the
// node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
