package proxy

import (
	"fmt"
	"net/url"
	"strings"

	"latency-tester/pkg/models"
)

// ForEndpoint builds the tunnel that routes a request through ep.
// A ready Transport URL on the endpoint takes precedence over its type.
func ForEndpoint(ep models.Endpoint) (Tunnel, error) {
	if ep.Transport != "" {
		return Tunnel{Kind: KindDialer, Transport: ep.Transport}, nil
	}

	hostPort := ep.HostPort()
	if hostPort == "" {
		return Tunnel{}, fmt.Errorf("endpoint %q has no address", ep.ID())
	}

	switch strings.ToLower(ep.Type) {
	case models.TypeHTTP, models.TypeHTTPS:
		u := &url.URL{Scheme: strings.ToLower(ep.Type), Host: hostPort}
		if ep.Username != "" {
			u.User = url.UserPassword(ep.Username, ep.Password)
		}
		return Tunnel{Kind: KindHTTPProxy, ProxyURL: u}, nil
	case models.TypeSOCKS5:
		u := &url.URL{Scheme: "socks5", Host: hostPort}
		if ep.Username != "" {
			u.User = url.UserPassword(ep.Username, ep.Password)
		}
		return Tunnel{Kind: KindDialer, Transport: u.String()}, nil
	default:
		return Tunnel{}, fmt.Errorf("%w: %q", ErrUnsupported, ep.Type)
	}
}
