//go:build wireinject
// +build wireinject

package di

import (
	"Noesis/pkg/config"
	"Noesis/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideHTTPClient,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideIncidentStore,
		ProvideSignalStore,
		ProvideSignalPublisher,

		// Services
		ProvideCollectors,
		ProvideAnnotator,
		ProvideGeocoder,
		ProvideNotifier,
		ProvideSensorStream,

		// Use cases
		ProvideCoordinator,
		ProvideFormation,
		ProvideRiskPrediction,
		ProvideCycle,
		ProvideSignalProcessor,
		ProvideStreamCollector,
		ProvideKafkaSignalsHandler,
		ProvideJobQueue,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
