package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EndpointScore is the latest measurement of one endpoint. A row is
// overwritten on every run that measures the endpoint.
type EndpointScore struct {
	bun.BaseModel `bun:"table:endpoint_scores,alias:es"`

	Name         string    `bun:",pk"`
	Server       string    `bun:",notnull"`
	Port         int
	Type         string
	RunID        string    `bun:",notnull"`
	PingMs       *float64  `bun:",nullzero"`
	HTTPMs       *float64  `bun:"http_ms,nullzero"`
	PacketLoss   float64   `bun:",notnull,default:0"`
	SuccessRate  float64   `bun:",notnull,default:0"`
	LatencyScore float64   `bun:",notnull,default:0"`
	Jitter       float64   `bun:",notnull,default:0"`
	Kept         bool      `bun:",notnull,default:false"`
	MeasuredAt   time.Time `bun:",notnull"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
