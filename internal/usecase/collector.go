package usecase

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/repository"
	"PriceCast/pkg/logger"
)

// Collector pulls live ticks from an exchange stream into the tick store,
// batching writes to keep insert pressure low.
type Collector struct {
	stream    repository.MarketStream
	ticks     repository.TickStore
	metrics   repository.Metrics
	logger    *logger.Logger
	batchSize int
	flushTick time.Duration
}

func NewCollector(stream repository.MarketStream, ticks repository.TickStore, metrics repository.Metrics, log *logger.Logger) *Collector {
	return &Collector{
		stream:    stream,
		ticks:     ticks,
		metrics:   metrics,
		logger:    log,
		batchSize: 100,
		flushTick: 5 * time.Second,
	}
}

// Run ingests until the context is canceled. Stream errors trigger a
// reconnect; store errors are logged and the batch is dropped rather than
// stalling the stream.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	defer c.stream.Close()

	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}

	tickCh, errCh := c.stream.Read(ctx)
	batch := make([]*models.Tick, 0, c.batchSize)
	flush := time.NewTicker(c.flushTick)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			c.store(context.WithoutCancel(ctx), batch)
			return ctx.Err()

		case tick, ok := <-tickCh:
			if !ok {
				// the stream reports its error and then closes both
				// channels, so drain errCh here: a broken socket must
				// reconnect, not end the run as a clean shutdown
				if errCh != nil {
					if err, pending := <-errCh; pending {
						var rerr error
						if tickCh, errCh, rerr = c.resume(ctx, err); rerr != nil {
							return rerr
						}
						continue
					}
				}
				c.store(ctx, batch)
				return nil
			}
			batch = append(batch, tick)
			c.metrics.RecordLastPrice(tick.Symbol, tick.Price)
			if len(batch) >= c.batchSize {
				c.store(ctx, batch)
				batch = batch[:0]
			}

		case <-flush.C:
			c.store(ctx, batch)
			batch = batch[:0]

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			var rerr error
			if tickCh, errCh, rerr = c.resume(ctx, err); rerr != nil {
				return rerr
			}
		}
	}
}

func (c *Collector) resume(ctx context.Context, cause error) (<-chan *models.Tick, <-chan error, error) {
	c.logger.Error("stream error, reconnecting", logger.Error(cause))
	c.metrics.RecordError("stream")
	if err := c.stream.Reconnect(ctx); err != nil {
		return nil, nil, err
	}
	tickCh, errCh := c.stream.Read(ctx)
	return tickCh, errCh, nil
}

func (c *Collector) store(ctx context.Context, batch []*models.Tick) {
	if len(batch) == 0 {
		return
	}
	started := time.Now()
	if err := c.ticks.StoreBatch(ctx, batch); err != nil {
		c.logger.Error("tick batch store failed",
			logger.Int("size", len(batch)),
			logger.Error(err))
		c.metrics.RecordError("store")
		return
	}
	c.metrics.RecordLatency("tick_batch_store", time.Since(started).Seconds())
}
