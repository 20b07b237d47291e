//go:build wireinject
// +build wireinject

package di

import (
	"OpsPulse/pkg/config"
	"OpsPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp builds the fully wired application. The real body is
// generated into wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// logging and metrics
		ProvideLogger,
		ProvideMetrics,

		// backing services
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// repositories
		ProvideObservationStorage,
		ProvideObservationPublisher,
		ProvideFeedStream,
		ProvideRestClient,
		ProvideHistoryStore,
		ProvideCacheService,
		ProvideReportCache,
		ProvideAlertSink,

		// trend engine
		ProvideEngineProvider,
		ProvideAnalyzer,

		// use cases
		ProvideObservationProcessor,
		ProvideObservationCollector,
		ProvideKafkaObservationsHandler,
		ProvideReportBuilder,
		ProvideHistoryUseCase,
		ProvideAveragesUseCase,
		ProvideRefreshTargets,
		ProvideOverviewUseCase,
		ProvideAlertDispatcher,
		ProvideQueue,
		ProvideScheduler,

		// assembly
		ProvideApp,
	)
	return &server.App{}, nil
}
