package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/handler/api"
	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/service/exchange"
	"PriceCast/internal/services/deepar"
	"PriceCast/internal/usecase"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/objstore"
	"PriceCast/pkg/server"
	"PriceCast/pkg/util"
)

// ProvideLogger creates the application logger with a small error buffer
// for the status endpoint.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	log, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	log.AttachErrorBuffer(64)
	return log, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates the ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTickStore creates the ClickHouse tick store and its schema.
func ProvideTickStore(client *pkgch.Client, log *applogger.Logger) (repository.TickStore, error) {
	store := internalrepo.NewClickHouseTickStore(client, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("tick store schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates the Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the Kafka report publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config, log *applogger.Logger) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, log)
}

// ProvideObjectStore creates the Redis-backed object store.
func ProvideObjectStore(cfg *config.Config) (objstore.Store, error) {
	store, err := objstore.NewRedisStore(
		objstore.WithHost(cfg.Store.Host),
		objstore.WithPort(cfg.Store.Port),
		objstore.WithPassword(cfg.Store.Password),
		objstore.WithDB(cfg.Store.DB),
		objstore.WithBucket(cfg.Store.Bucket),
	)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	return store, nil
}

// ProvideExchangeStream creates the exchange WebSocket stream.
func ProvideExchangeStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	return exchange.New(
		cfg.Exchange.APIKey,
		cfg.Exchange.WebSocketURL,
		cfg.Exchange.Symbols,
		cfg.Exchange.ReconnectDelay,
		cfg.Exchange.PingInterval,
		log,
	)
}

// ProvideServiceClient creates the forecasting service HTTP client.
func ProvideServiceClient(cfg *config.Config, log *applogger.Logger) *deepar.ServiceClient {
	httpClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Forecast.Timeout))
	return deepar.NewServiceClient(httpClient, strings.TrimSuffix(cfg.Forecast.ServiceURL, "/"), log,
		deepar.WithMaxAttempts(cfg.Forecast.RetryAttempts),
	)
}

// ProvideTrainer creates the training job client.
func ProvideTrainer(client *deepar.ServiceClient, cfg *config.Config, log *applogger.Logger) service.Trainer {
	return deepar.NewTrainer(client, cfg.Forecast.PollInterval, log)
}

// ProvideEndpoint creates the model endpoint handle.
func ProvideEndpoint(client *deepar.ServiceClient, cfg *config.Config, log *applogger.Logger) service.Endpoint {
	name := cfg.Forecast.EndpointName
	if name == "" {
		name = cfg.Forecast.ModelName + "-ep"
	}
	return deepar.NewModelEndpoint(client, name, cfg.Forecast.ModelName, cfg.Forecast.PollInterval, log)
}

// ProvidePreparer creates the series preparer.
func ProvidePreparer(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *usecase.Preparer {
	return usecase.NewPreparer(frequency(cfg), cfg.Pipeline.ExcludedHours, nil, log, m)
}

// ProvideWindowBuilder creates the window builder.
func ProvideWindowBuilder(log *applogger.Logger) *usecase.WindowBuilder {
	return usecase.NewWindowBuilder(log)
}

// ProvideDatasetWriter creates the dataset writer.
func ProvideDatasetWriter(store objstore.Store, log *applogger.Logger) *usecase.DatasetWriter {
	return usecase.NewDatasetWriter(store, log)
}

// ProvidePipelineConfig translates the YAML pipeline section into run
// parameters. Horizon converts from wall-clock duration to steps of the
// configured frequency.
func ProvidePipelineConfig(cfg *config.Config) (usecase.PipelineConfig, error) {
	freq := frequency(cfg)

	start, err := parsePipelineTime(cfg.Pipeline.Start)
	if err != nil {
		return usecase.PipelineConfig{}, fmt.Errorf("pipeline.start: %w", err)
	}
	endTraining, err := parsePipelineTime(cfg.Pipeline.EndTraining)
	if err != nil {
		return usecase.PipelineConfig{}, fmt.Errorf("pipeline.end_training: %w", err)
	}

	horizon := int(cfg.Pipeline.Horizon / freq)
	if horizon <= 0 {
		return usecase.PipelineConfig{}, fmt.Errorf("pipeline.horizon %v is shorter than one %v step", cfg.Pipeline.Horizon, freq)
	}

	return usecase.PipelineConfig{
		Symbol:         cfg.Pipeline.Symbol,
		TargetColumn:   targetColumn(cfg),
		Freq:           freq,
		Start:          start,
		EndTraining:    endTraining,
		Horizon:        horizon,
		WindowCount:    cfg.Pipeline.WindowCount,
		DatasetPrefix:  datasetPrefix(cfg),
		ReportPath:     reportPathFor(cfg, cfg.Pipeline.Symbol),
		Overwrite:      cfg.Pipeline.Overwrite,
		ModelName:      cfg.Forecast.ModelName,
		SampleCount:    cfg.Forecast.NumSamples,
		QuantileLevels: cfg.Forecast.Quantiles,
		IncludeSamples: cfg.Forecast.IncludeSamples,
		Hyperparams:    cfg.Forecast.Hyperparams,
	}, nil
}

// ProvidePipeline assembles the rolling forecast pipeline.
func ProvidePipeline(
	pcfg usecase.PipelineConfig,
	ticks repository.TickStore,
	preparer *usecase.Preparer,
	builder *usecase.WindowBuilder,
	datasets *usecase.DatasetWriter,
	trainer service.Trainer,
	endpoint service.Endpoint,
	store objstore.Store,
	publisher repository.Publisher,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(pcfg, ticks, preparer, builder, datasets, trainer, endpoint, store, publisher, m, log)
}

// ProvideCollector creates the tick ingest loop.
func ProvideCollector(stream repository.MarketStream, ticks repository.TickStore, m repository.Metrics, log *applogger.Logger) *usecase.Collector {
	return usecase.NewCollector(stream, ticks, m, log)
}

// ProvideCandleService creates the API-facing series service.
func ProvideCandleService(ticks repository.TickStore, preparer *usecase.Preparer, log *applogger.Logger) *usecase.CandleService {
	return usecase.NewCandleService(ticks, preparer, log)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(
	candles *usecase.CandleService,
	store objstore.Store,
	stream repository.MarketStream,
	cfg *config.Config,
	log *applogger.Logger,
) xhttp.Handler {
	return api.NewForecastHandler(candles, store, stream, cfg.Environment,
		func(symbol string) string { return reportPathFor(cfg, symbol) }, log)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.Collector,
	pipeline *usecase.Pipeline,
	handler xhttp.Handler,
	ticks repository.TickStore,
	publisher repository.Publisher,
	store objstore.Store,
) *server.App {
	return server.New(cfg, log, collector, pipeline, handler, ticks, publisher, store)
}

func frequency(cfg *config.Config) time.Duration {
	if cfg.Pipeline.Frequency <= 0 {
		return time.Hour
	}
	return cfg.Pipeline.Frequency
}

func targetColumn(cfg *config.Config) string {
	if cfg.Pipeline.TargetColumn == "" {
		return "close"
	}
	return cfg.Pipeline.TargetColumn
}

func datasetPrefix(cfg *config.Config) string {
	if cfg.Pipeline.DatasetPrefix == "" {
		return "datasets/" + cfg.Pipeline.Symbol
	}
	return cfg.Pipeline.DatasetPrefix
}

// reportPathFor resolves the report location for a symbol. A "%s" in the
// configured path is substituted with the symbol.
func reportPathFor(cfg *config.Config, symbol string) string {
	path := cfg.Pipeline.ReportPath
	if path == "" {
		path = "reports/%s.csv"
	}
	if strings.Contains(path, "%s") {
		return fmt.Sprintf(path, symbol)
	}
	return path
}

func parsePipelineTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if t, err := util.ParseStart(s); err == nil {
		return t, nil
	}
	if t, ok := util.ParseTime(s); ok {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
