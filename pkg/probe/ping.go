package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// The ping process gets this much longer than its per-packet timeout to
// account for process startup.
const pingStartupSlack = 5 * time.Second

var (
	ErrPingTimeout     = errors.New("ping timed out")
	ErrPingUnavailable = errors.New("ping command not available")
)

var (
	rttPattern  = regexp.MustCompile(`time[=<](\d+(?:\.\d+)?)\s*ms`)
	lossPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
)

// PingResult is the outcome of one ping invocation. Err is informational:
// Samples and PacketLoss are always meaningful.
type PingResult struct {
	Samples    []float64
	PacketLoss float64
	Err        error
}

// CommandRunner runs name with args and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Pinger measures round-trip times with the system ping command.
type Pinger struct {
	Count   int
	Timeout time.Duration
	GOOS    string
	Run     CommandRunner
	Logger  *slog.Logger
}

// NewPinger returns a Pinger sending count packets with the given
// per-packet timeout.
func NewPinger(count int, timeout time.Duration, logger *slog.Logger) *Pinger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pinger{
		Count:   count,
		Timeout: timeout,
		GOOS:    runtime.GOOS,
		Run:     execRunner,
		Logger:  logger,
	}
}

// Args returns the platform specific ping arguments for host.
func (p *Pinger) Args(host string) []string {
	count := strconv.Itoa(max(p.Count, 1))
	timeout := max(p.Timeout, time.Second)
	switch p.GOOS {
	case "windows":
		return []string{"-n", count, "-w", strconv.FormatInt(timeout.Milliseconds(), 10), host}
	case "darwin", "freebsd", "netbsd", "openbsd":
		return []string{"-c", count, "-W", strconv.FormatInt(timeout.Milliseconds(), 10), host}
	default:
		return []string{"-c", count, "-W", strconv.Itoa(int(timeout / time.Second)), host}
	}
}

// Ping runs one ping invocation against host. It never panics on command
// failures and always returns a usable result.
func (p *Pinger) Ping(ctx context.Context, host string) PingResult {
	ctx, cancel := context.WithTimeout(ctx, max(p.Timeout, time.Second)+pingStartupSlack)
	defer cancel()

	run := p.Run
	if run == nil {
		run = execRunner
	}

	out, err := run(ctx, "ping", p.Args(host)...)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		p.Logger.Debug("Ping timeout", "host", host)
		return PingResult{PacketLoss: 100, Err: ErrPingTimeout}
	case errors.Is(err, exec.ErrNotFound):
		p.Logger.Debug("Ping command not found on this system")
		return PingResult{Err: ErrPingUnavailable}
	}

	samples, loss, parsed := ParseOutput(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && parsed {
			// ping exits non-zero when packets are lost
			return PingResult{Samples: samples, PacketLoss: loss}
		}
		p.Logger.Debug("Ping failed", "host", host, "error", err)
		return PingResult{Err: fmt.Errorf("ping %s: %w", host, err)}
	}

	return PingResult{Samples: samples, PacketLoss: loss}
}

// ParseOutput extracts every per-packet RTT and the packet loss percentage
// from ping output. ok reports whether anything recognisable was found.
func ParseOutput(output string) (samples []float64, loss float64, ok bool) {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "loss") {
			if m := lossPattern.FindStringSubmatch(line); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					loss = v
					ok = true
				}
			}
		}
		for _, m := range rttPattern.FindAllStringSubmatch(line, -1) {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				samples = append(samples, v)
				ok = true
			}
		}
	}
	return samples, loss, ok
}
