package report

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"latency-tester/pkg/measurement"
	"latency-tester/pkg/models"
)

// Row is one measured endpoint as displayed.
type Row struct {
	Name string
	measurement.Result
	Kept bool
}

// Ranked returns the measured endpoints ordered by score, best first. Ties
// are broken by lower ping, then by name. Endpoints without RTT data sort
// after those with it.
func Ranked(r measurement.Report) []Row {
	kept := make(map[string]bool, len(r.Kept))
	for _, id := range r.Kept {
		kept[id] = true
	}

	rows := make([]Row, 0, len(r.Results))
	for name, res := range r.Results {
		rows = append(rows, Row{Name: name, Result: res, Kept: kept[name]})
	}
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.LatencyScore, a.LatencyScore); c != 0 {
			return c
		}
		if c := comparePing(a.PingMs, b.PingMs); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return rows
}

func comparePing(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// KeptOnly returns a copy of r restricted to the kept endpoints.
func KeptOnly(r measurement.Report) measurement.Report {
	kept := make(map[string]bool, len(r.Kept))
	for _, id := range r.Kept {
		kept[id] = true
	}

	out := r
	out.Results = make(map[string]measurement.Result, len(r.Kept))
	out.Logs = make([]measurement.LogEntry, 0, len(r.Kept))
	out.Kept = slices.Clone(r.Kept)
	for id, res := range r.Results {
		if kept[id] {
			out.Results[id] = res
		}
	}
	for _, entry := range r.Logs {
		if entry.Kept {
			out.Logs = append(out.Logs, entry)
		}
	}
	return out
}

// WriteText renders r as an aligned table followed by failures and a summary.
func WriteText(w io.Writer, r measurement.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCORE\tPING(ms)\tHTTP(ms)\tLOSS(%)\tSUCCESS\tJITTER(ms)\tKEPT")
	for _, row := range Ranked(r) {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%s\t%.1f\t%.0f%%\t%.1f\t%s\n",
			row.Name,
			row.LatencyScore,
			optional(row.PingMs),
			optional(row.HTTPMs),
			row.PacketLoss,
			row.SuccessRate*100,
			row.Jitter,
			yesNo(row.Kept))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, entry := range r.Logs {
		if entry.Error != "" {
			fmt.Fprintf(w, "FAILED %s: %s\n", entry.EndpointID, entry.Error)
		}
	}

	s := Summarize(r)
	_, err := fmt.Fprintf(w, "\n%d endpoints, %d kept, %d failed in %s (run %s)\n",
		s.Endpoints, s.Kept, s.Failed, r.Duration.Round(time.Millisecond), r.RunID)
	if err != nil {
		return err
	}
	if s.Ping.Count > 0 {
		_, err = fmt.Fprintf(w, "ping p50/p90/p99: %.1f/%.1f/%.1f ms\n", s.Ping.P50, s.Ping.P90, s.Ping.P99)
	}
	return err
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type jsonReport struct {
	RunID      string                        `json:"run_id"`
	StartedAt  time.Time                     `json:"started_at"`
	DurationMs int64                         `json:"duration_ms"`
	Summary    Summary                       `json:"summary"`
	Results    map[string]measurement.Result `json:"results"`
	Logs       []measurement.LogEntry        `json:"logs"`
	Kept       []string                      `json:"kept"`
}

// WriteJSON writes r as an indented JSON document.
func WriteJSON(w io.Writer, r measurement.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		DurationMs: r.Duration.Milliseconds(),
		Summary:    Summarize(r),
		Results:    r.Results,
		Logs:       r.Logs,
		Kept:       r.Kept,
	})
}

// WriteScores renders stored snapshots as a table, in the order given.
func WriteScores(w io.Writer, scores []models.EndpointScore) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSERVER\tSCORE\tPING(ms)\tHTTP(ms)\tLOSS(%)\tSUCCESS\tKEPT\tMEASURED")
	for _, s := range scores {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%s\t%.1f\t%.0f%%\t%s\t%s\n",
			s.Name,
			s.Server,
			s.LatencyScore,
			optional(s.PingMs),
			optional(s.HTTPMs),
			s.PacketLoss,
			s.SuccessRate*100,
			yesNo(s.Kept),
			s.MeasuredAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
