package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"latency-tester/pkg/config"
	"latency-tester/pkg/models"
)

// FetchClient fetches ssconfig:// links.
var FetchClient = &http.Client{Timeout: 15 * time.Second}

// proxyList is the clash-style document holding endpoints.
type proxyList struct {
	Proxies []models.Endpoint `yaml:"proxies"`
}

// LoadEndpoints reads the endpoints to measure from path. YAML files hold a
// proxies list; any other file holds one access link per line.
func LoadEndpoints(ctx context.Context, path string) ([]models.Endpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseProxyList(file)
	default:
		return ParseAccessLinks(ctx, file)
	}
}

// ParseProxyList decodes a proxies list. Shadowsocks entries with a cipher get
// their transport URL built from it.
func ParseProxyList(r io.Reader) ([]models.Endpoint, error) {
	var list proxyList
	if err := yaml.NewDecoder(r).Decode(&list); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode proxy list: %w", err)
	}

	endpoints := make([]models.Endpoint, 0, len(list.Proxies))
	for _, ep := range list.Proxies {
		ep.Type = strings.ToLower(ep.Type)
		if ep.Type == models.TypeShadowsocks && ep.Transport == "" && ep.Cipher != "" {
			ss := config.SSConfig{Server: ep.Server, ServerPort: ep.Port, Method: ep.Cipher, Password: ep.Password}
			transport, err := ss.BuildURL()
			if err != nil {
				slog.Warn("Skipping shadowsocks transport", "endpoint", ep.ID(), "error", err)
			} else {
				ep.Transport = transport
			}
		}
		slog.Debug("Loaded endpoint", "endpoint", ep.ID(), "server", ep.Server, "type", ep.Type)
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// ParseAccessLinks reads one access link per line. Blank lines and lines
// starting with # are ignored; ssconfig:// links are fetched first. Lines
// that cannot be parsed are logged and skipped.
func ParseAccessLinks(ctx context.Context, r io.Reader) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		accessKey := strings.TrimSpace(scanner.Text())
		if accessKey == "" || strings.HasPrefix(accessKey, "#") {
			continue
		}

		if strings.HasPrefix(accessKey, "ssconfig://") {
			name := fragmentOf(accessKey)
			link, err := config.FetchSSConfig(ctx, FetchClient, accessKey)
			if err != nil {
				slog.Error("Error fetching access key", "accessKey", accessKey, "error", err)
				continue
			}
			if name != "" && fragmentOf(link) == "" {
				link += "#" + url.PathEscape(name)
			}
			accessKey = link
		}

		ep, err := parseAccessKey(accessKey)
		if err != nil {
			slog.Error("Error parsing access key", "accessKey", accessKey, "error", err)
			continue
		}
		slog.Debug("Loaded endpoint", "endpoint", ep.ID(), "server", ep.Server, "type", ep.Type)
		endpoints = append(endpoints, ep)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return endpoints, nil
}

func fragmentOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Fragment
}

// parseAccessKey turns scheme://userinfo@host:port#name into an endpoint. The
// fragment names the endpoint and falls back to host:port.
func parseAccessKey(accessKey string) (models.Endpoint, error) {
	u, err := url.Parse(accessKey)
	if err != nil {
		return models.Endpoint{}, fmt.Errorf("failed to parse access key: %w", err)
	}
	if u.Hostname() == "" {
		return models.Endpoint{}, fmt.Errorf("access key has no host")
	}

	ep := models.Endpoint{
		Name:   u.Fragment,
		Server: u.Hostname(),
		Type:   strings.ToLower(u.Scheme),
	}
	if p := u.Port(); p != "" {
		ep.Port, err = strconv.Atoi(p)
		if err != nil {
			return models.Endpoint{}, fmt.Errorf("invalid port %q: %w", p, err)
		}
	}

	switch ep.Type {
	case models.TypeShadowsocks:
		u.Fragment = ""
		u.RawFragment = ""
		ep.Transport = u.String()
	case models.TypeHTTP, models.TypeHTTPS, models.TypeSOCKS5:
		if u.User != nil {
			ep.Username = u.User.Username()
			ep.Password, _ = u.User.Password()
		}
	default:
		return models.Endpoint{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if ep.Name == "" {
		ep.Name = ep.HostPort()
	}
	return ep, nil
}
