/*
Package models defines the records shared across the latency-tester application:
the endpoints that are measured and the score rows persisted for them.

Core Types:

Endpoint describes one proxy server as it came out of a subscription or access-key file:

	type Endpoint struct {
		Name      string // Identifier results are keyed by
		Server    string // Host name or IP address; empty skips the ping probe
		Port      int    // Proxy port
		Type      string // http, https, socks5, ss, ...
		Cipher    string // Shadowsocks method
		Password  string // Shadowsocks or socks5 password
		Username  string // socks5 user
		Transport string // Ready transport URL, e.g. an ss:// access link
	}

EndpointScore is the latest result for one endpoint, stored in the endpoint_scores table:

	type EndpointScore struct {
		Name         string   // Primary key, the endpoint identifier
		RunID        string   // Run that produced the row
		PingMs       *float64 // NULL when no RTT samples were obtained
		HTTPMs       *float64 // NULL when every HTTP attempt failed
		PacketLoss   float64  // 0-100
		SuccessRate  float64  // 0-1
		LatencyScore float64  // 0-100
		Jitter       float64  // Standard deviation of RTT samples, ms
		Kept         bool     // Passed the latency/success filter
	}

Usage Example:

	ep := models.Endpoint{Name: "hk-01", Server: "203.0.113.7", Port: 8388, Type: models.TypeShadowsocks}
	fmt.Println(ep.ID(), ep.HostPort())

Thread Safety:

Endpoint values are read-only inputs to a measurement run and may be shared between
goroutines. EndpointScore rows are built by the database layer from a finished run.
*/
package models
