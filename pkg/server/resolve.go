package server

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"net/url"

	"latency-tester/pkg/models"
)

// LookupFunc resolves a hostname to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// DefaultLookup resolves with the system resolver.
func DefaultLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// Resolve expands every endpoint addressed by hostname into one endpoint per
// resolved address, so each address is measured on its own. Endpoints that
// fail to resolve are kept unchanged. Names get an "@ip" suffix when a host
// has more than one address.
func Resolve(ctx context.Context, endpoints []models.Endpoint, lookup LookupFunc) []models.Endpoint {
	if lookup == nil {
		lookup = DefaultLookup
	}

	out := make([]models.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep.Server == "" {
			out = append(out, ep)
			continue
		}
		if _, err := netip.ParseAddr(ep.Server); err == nil {
			out = append(out, ep)
			continue
		}

		addrs, err := lookup(ctx, ep.Server)
		if err != nil || len(addrs) == 0 {
			slog.Warn("Failed to resolve hostname", "endpoint", ep.ID(), "hostname", ep.Server, "error", err)
			out = append(out, ep)
			continue
		}

		for _, addr := range addrs {
			resolved := ep
			resolved.Server = addr.Unmap().String()
			if len(addrs) > 1 {
				resolved.Name = ep.ID() + "@" + resolved.Server
			}
			if ep.Transport != "" {
				resolved.Transport = withHost(ep.Transport, resolved.Server)
			}
			out = append(out, resolved)
		}
		slog.Debug("Resolved hostname", "hostname", ep.Server, "addresses", len(addrs))
	}
	return out
}

// withHost overwrites the host of a transport URL, keeping its port.
func withHost(transport, ip string) string {
	u, err := url.Parse(transport)
	if err != nil || u.Host == "" {
		return transport
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(ip, port)
	} else if addr, err := netip.ParseAddr(ip); err == nil && addr.Is6() {
		u.Host = "[" + ip + "]"
	} else {
		u.Host = ip
	}
	return u.String()
}
