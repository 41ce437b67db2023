//go:build wireinject
// +build wireinject

package di

import (
	"PriceCast/pkg/config"
	"PriceCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideObjectStore,

		// Repositories
		ProvideTickStore,
		ProvidePublisher,
		ProvideExchangeStream,

		// Forecasting service
		ProvideServiceClient,
		ProvideTrainer,
		ProvideEndpoint,

		// Use cases
		ProvidePreparer,
		ProvideWindowBuilder,
		ProvideDatasetWriter,
		ProvidePipelineConfig,
		ProvidePipeline,
		ProvideCollector,
		ProvideCandleService,

		// HTTP surface and application
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
