//go:build wireinject
// +build wireinject

package di

import (
	"LoanServe/pkg/config"
	"LoanServe/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories
		ProvideClassifier,
		ProvideAuditStore,
		ProvidePublisher,

		// Use cases
		ProvidePredictor,
		ProvideRecorder,

		// Delivery
		ProvideFeed,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
