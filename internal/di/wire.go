//go:build wireinject
// +build wireinject

package di

import (
	"DerivBot/internal/domain/repository"
	"DerivBot/internal/service/deriv"
	"DerivBot/pkg/config"
	"DerivBot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideNotifier,
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDerivClient,
		wire.Bind(new(repository.Broker), new(*deriv.Client)),
		ProvideRedisCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideDocumentStore,
		ProvideTradeSinks,

		// Use cases
		ProvidePatternDetector,
		ProvideLearningStore,
		ProvideTradeJournal,
		ProvideTradeLifecycle,
		ProvideOrchestrator,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
