package repository

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
)

// MarketStream is a live tick feed from an exchange.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TickStore persists raw ticks and reads them back as irregular source rows
// for the series preparer.
type TickStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	RawRecords(ctx context.Context, symbol string, from, to time.Time) ([]models.RawRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher emits finished forecast reports for downstream consumers.
type Publisher interface {
	PublishReport(ctx context.Context, symbol string, table *models.MergedTable) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordForecastCall(outcome string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSeriesLength(column string, n int)
}
