// Package probe implements the two measurement primitives: an RTT probe that
// drives the system ping command and an HTTP probe that times a GET against a
// reference URL, optionally tunnelled through the endpoint. Both report
// failures inside their result values instead of returning errors, so an
// unreachable endpoint is an ordinary outcome.
package probe
