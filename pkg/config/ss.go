package config

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SSConfig is a shadowsocks server definition as found in SIP008-style JSON
// documents and clash proxy lists.
type SSConfig struct {
	Server     string `json:"server"`
	ServerPort int    `json:"server_port"`
	Method     string `json:"method"`
	Password   string `json:"password"`
	Prefix     string `json:"prefix"`
}

// BuildURL converts the SSConfig into an ss:// transport URL.
func (c *SSConfig) BuildURL() (string, error) {
	if c.Server == "" || c.ServerPort <= 0 {
		return "", fmt.Errorf("shadowsocks config needs server and port")
	}
	if c.Method == "" {
		return "", fmt.Errorf("shadowsocks config for %s has no cipher", c.Server)
	}

	userInfo := base64.URLEncoding.EncodeToString([]byte(c.Method + ":" + c.Password))
	u := &url.URL{
		Scheme: "ss",
		User:   url.User(userInfo),
		Host:   net.JoinHostPort(c.Server, strconv.Itoa(c.ServerPort)),
	}
	if c.Prefix != "" {
		q := url.Values{}
		q.Add("prefix", c.Prefix)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// ParseSSConfig parses a JSON document into an SSConfig and returns its URL.
func ParseSSConfig(jsonConfig string) (string, error) {
	var config SSConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return "", fmt.Errorf("failed to parse JSON config: %w", err)
	}

	return config.BuildURL()
}

// FetchSSConfig resolves an ssconfig:// link by fetching it over https. The
// body is either an ss:// link or a JSON SSConfig.
func FetchSSConfig(ctx context.Context, client *http.Client, configURL string) (string, error) {
	u, err := url.Parse(configURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "ssconfig" {
		return "", fmt.Errorf("invalid URL scheme %q: must be ssconfig://", u.Scheme)
	}
	u.Scheme = "https"

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch config: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	content := strings.TrimSpace(string(body))
	if strings.HasPrefix(content, "ss://") {
		return content, nil
	}
	return ParseSSConfig(content)
}
