package repository

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/kafka"
	"PriceCast/pkg/logger"
)

// KafkaPublisher emits finished forecast reports to a Kafka topic, one
// message per report keyed by symbol so consumers see per-symbol order.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: log}
}

// reportMessage is the published shape of one merged report.
type reportMessage struct {
	Symbol       string      `json:"symbol"`
	GeneratedAt  string      `json:"generated_at"`
	QuantileKeys []string    `json:"quantile_keys"`
	Rows         []reportRow `json:"rows"`
}

type reportRow struct {
	Time      string              `json:"time"`
	Call      int                 `json:"call"`
	Truth     *float64            `json:"truth"`
	Quantiles map[string]*float64 `json:"quantiles"`
}

// PublishReport serializes the table and publishes it. Missing values
// become JSON nulls; the in-memory marker never crosses the wire.
func (p *KafkaPublisher) PublishReport(ctx context.Context, symbol string, table *models.MergedTable) error {
	msg := reportMessage{
		Symbol:       symbol,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		QuantileKeys: table.QuantileKeys,
		Rows:         make([]reportRow, 0, len(table.Rows)),
	}
	for _, r := range table.Rows {
		row := reportRow{
			Time:      r.TS.UTC().Format("2006-01-02 15:04:05"),
			Call:      r.Call,
			Truth:     optional(r.Truth),
			Quantiles: make(map[string]*float64, len(r.Quantiles)),
		}
		for key, v := range r.Quantiles {
			row.Quantiles[key] = optional(v)
		}
		msg.Rows = append(msg.Rows, row)
	}

	if err := p.producer.Publish(ctx, p.topic, []byte(symbol), msg); err != nil {
		return fmt.Errorf("publish report for %s: %w", symbol, err)
	}

	p.logger.Info("report published",
		logger.String("topic", p.topic),
		logger.String("symbol", symbol),
		logger.Int("rows", len(msg.Rows)))
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func optional(v float64) *float64 {
	if models.IsMissing(v) {
		return nil
	}
	return &v
}
