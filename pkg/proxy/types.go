package proxy

import (
	"errors"
	"net/url"
)

// Kind represents how traffic is tunnelled through an endpoint
type Kind string

const (
	KindDirect    Kind = "direct"
	KindHTTPProxy Kind = "http-proxy"
	KindDialer    Kind = "dialer"
)

// ErrUnsupported is returned for endpoint types that cannot carry a probe.
var ErrUnsupported = errors.New("unsupported endpoint type")

// Tunnel describes the route an HTTP probe takes to its target
type Tunnel struct {
	Kind Kind
	// ProxyURL is set for KindHTTPProxy
	ProxyURL *url.URL
	// Transport is an outline-sdk transport config string, set for KindDialer
	Transport string
}

// Direct is the tunnel used when probes are not routed through the endpoint.
var Direct = Tunnel{Kind: KindDirect}
