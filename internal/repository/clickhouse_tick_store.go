package repository

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/clickhouse"
	"PriceCast/pkg/logger"
)

// ClickHouseTickStore persists exchange ticks in ClickHouse and reads them
// back as irregular source rows for the series preparer.
type ClickHouseTickStore struct {
	client *clickhouse.Client
	logger *logger.Logger
}

func NewClickHouseTickStore(client *clickhouse.Client, log *logger.Logger) *ClickHouseTickStore {
	return &ClickHouseTickStore{client: client, logger: log}
}

// Init creates the ticks table if it does not exist.
func (s *ClickHouseTickStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			symbol    LowCardinality(String),
			timestamp DateTime('UTC'),
			price     Float64,
			volume    Float64
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (symbol, timestamp)`,
	})
}

// Store inserts a single tick.
func (s *ClickHouseTickStore) Store(ctx context.Context, t *models.Tick) error {
	return s.StoreBatch(ctx, []*models.Tick{t})
}

// StoreBatch inserts ticks in one transaction-scoped batch.
func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO ticks (symbol, timestamp, price, volume) VALUES (?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		ts := time.Unix(t.Timestamp, 0).UTC()
		if _, err := stmt.ExecContext(ctx, t.Symbol, ts, t.Price, t.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert tick %s@%d: %w", t.Symbol, t.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.logger.Debug("tick batch stored", logger.Int("count", len(ticks)))
	return nil
}

// RawRecords returns every tick in [from, to) as one source row. Each row
// carries the tick price under all four OHLC names so the preparer's
// aggregation rules produce proper candles, plus the traded volume.
func (s *ClickHouseTickStore) RawRecords(ctx context.Context, symbol string, from, to time.Time) ([]models.RawRecord, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT timestamp, price, volume
		 FROM ticks
		 WHERE symbol = ? AND timestamp >= ? AND timestamp < ?
		 ORDER BY timestamp`,
		symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query ticks for %s: %w", symbol, err)
	}
	defer rows.Close()

	var records []models.RawRecord
	for rows.Next() {
		var (
			ts     time.Time
			price  float64
			volume float64
		)
		if err := rows.Scan(&ts, &price, &volume); err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		records = append(records, models.RawRecord{
			TS: ts.UTC(),
			Fields: map[string]float64{
				"open":   price,
				"high":   price,
				"low":    price,
				"close":  price,
				"price":  price,
				"volume": volume,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}

	s.logger.Debug("source rows loaded",
		logger.String("symbol", symbol),
		logger.Int("rows", len(records)),
		logger.Time("from", from),
		logger.Time("to", to))
	return records, nil
}

// Health pings the database.
func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close releases the connection pool.
func (s *ClickHouseTickStore) Close() error {
	return s.client.Close()
}
