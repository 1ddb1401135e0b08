package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"latency-tester/pkg/measurement"
	"latency-tester/pkg/models"
)

// ScoresFromReport flattens a report into one snapshot row per measured
// endpoint. Endpoints only supply address columns; results without a
// matching endpoint are stored without them.
func ScoresFromReport(report measurement.Report, endpoints []models.Endpoint) []models.EndpointScore {
	byID := make(map[string]models.Endpoint, len(endpoints))
	for _, ep := range endpoints {
		byID[ep.ID()] = ep
	}

	var scores []models.EndpointScore
	for _, entry := range report.Logs {
		if entry.Measurements == nil {
			continue
		}
		res := report.Results[entry.EndpointID]
		ep := byID[entry.EndpointID]
		scores = append(scores, models.EndpointScore{
			Name:         entry.EndpointID,
			Server:       ep.Server,
			Port:         ep.Port,
			Type:         ep.Type,
			RunID:        report.RunID,
			PingMs:       res.PingMs,
			HTTPMs:       res.HTTPMs,
			PacketLoss:   res.PacketLoss,
			SuccessRate:  res.SuccessRate,
			LatencyScore: res.LatencyScore,
			Jitter:       res.Jitter,
			Kept:         entry.Kept,
			MeasuredAt:   entry.Timestamp,
		})
	}
	return dedupe(scores)
}

// dedupe keeps the last row per name; Postgres rejects an upsert that
// touches the same row twice.
func dedupe(scores []models.EndpointScore) []models.EndpointScore {
	idx := make(map[string]int, len(scores))
	out := scores[:0]
	for _, s := range scores {
		if i, ok := idx[s.Name]; ok {
			out[i] = s
			continue
		}
		idx[s.Name] = len(out)
		out = append(out, s)
	}
	return out
}

func (db *DB) upsertQuery(scores *[]models.EndpointScore) *bun.InsertQuery {
	return db.NewInsert().
		Model(scores).
		On("CONFLICT (name) DO UPDATE").
		Set("server = EXCLUDED.server").
		Set("port = EXCLUDED.port").
		Set("type = EXCLUDED.type").
		Set("run_id = EXCLUDED.run_id").
		Set("ping_ms = EXCLUDED.ping_ms").
		Set("http_ms = EXCLUDED.http_ms").
		Set("packet_loss = EXCLUDED.packet_loss").
		Set("success_rate = EXCLUDED.success_rate").
		Set("latency_score = EXCLUDED.latency_score").
		Set("jitter = EXCLUDED.jitter").
		Set("kept = EXCLUDED.kept").
		Set("measured_at = EXCLUDED.measured_at").
		Set("updated_at = CURRENT_TIMESTAMP")
}

// UpsertScores overwrites the snapshot of every endpoint measured in report.
func (db *DB) UpsertScores(ctx context.Context, report measurement.Report, endpoints []models.Endpoint) error {
	scores := ScoresFromReport(report, endpoints)
	if len(scores) == 0 {
		return nil
	}

	if _, err := db.upsertQuery(&scores).Exec(ctx); err != nil {
		return fmt.Errorf("error upserting scores: %w", err)
	}

	slog.Debug("Scores stored", "run", report.RunID, "rows", len(scores))
	return nil
}

func (db *DB) scoresQuery(scores *[]models.EndpointScore, keptOnly bool) *bun.SelectQuery {
	q := db.NewSelect().
		Model(scores).
		OrderExpr("es.latency_score DESC").
		OrderExpr("es.name ASC")
	if keptOnly {
		q = q.Where("es.kept = ?", true)
	}
	return q
}

// GetScores returns the stored snapshots, best score first.
func (db *DB) GetScores(ctx context.Context, keptOnly bool) ([]models.EndpointScore, error) {
	var scores []models.EndpointScore
	if err := db.scoresQuery(&scores, keptOnly).Scan(ctx); err != nil {
		return nil, fmt.Errorf("error getting scores: %w", err)
	}
	return scores, nil
}
