package models

import (
	"net"
	"strconv"
)

// UnknownEndpoint is the identifier used for endpoints without a name.
const UnknownEndpoint = "unknown"

// Endpoint types understood when tunnelling probes through an endpoint.
const (
	TypeHTTP        = "http"
	TypeHTTPS       = "https"
	TypeSOCKS5      = "socks5"
	TypeShadowsocks = "ss"
)

// Endpoint is a proxy server to be measured. Only Name and Server are
// required; an empty Server skips the RTT probe.
type Endpoint struct {
	Name     string `yaml:"name" json:"name"`
	Server   string `yaml:"server" json:"server"`
	Port     int    `yaml:"port" json:"port,omitempty"`
	Type     string `yaml:"type" json:"type,omitempty"`
	Cipher   string `yaml:"cipher" json:"-"`
	Password string `yaml:"password" json:"-"`
	Username string `yaml:"username" json:"-"`

	// Transport is a ready transport URL (for example an ss:// access link)
	Transport string `yaml:"transport" json:"-"`
}

// ID returns the identifier results are keyed by.
func (e Endpoint) ID() string {
	if e.Name == "" {
		return UnknownEndpoint
	}
	return e.Name
}

// HostPort joins Server and Port. It returns "" when either is missing.
func (e Endpoint) HostPort() string {
	if e.Server == "" || e.Port <= 0 {
		return ""
	}
	return net.JoinHostPort(e.Server, strconv.Itoa(e.Port))
}
