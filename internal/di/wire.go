//go:build wireinject
// +build wireinject

package di

import (
	"MarketSim/internal/domain/repository"
	"MarketSim/pkg/config"
	"MarketSim/pkg/metrics"
	"MarketSim/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideKafkaProducer,
		ProvideErrorCollector,
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
		ProvideStreamMetrics,

		// Candle sinks
		ProvideHub,
		ProvideClickHouseClient,
		ProvideCandleArchive,
		ProvideCandlePublisher,
		ProvidePipeline,

		// Simulation
		ProvideSession,
		ProvideExplainer,
		ProvideControlConsumer,
		ProvideControlHandler,

		// Remote forecasts
		ProvideRedisCache,
		ProvideResultCache,
		ProvideLimiter,
		ProvideBackendClient,
		ProvideRemoteSimulation,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
