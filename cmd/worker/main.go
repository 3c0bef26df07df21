package main

import (
	"context"
	"time"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/database"
	"github.com/humaniq-ai/humaniq-core/internal/logger"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/humaniq-ai/humaniq-core/internal/service"
	"github.com/humaniq-ai/humaniq-core/internal/worker"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

// The worker drains results waiting for AI analysis. Several workers may
// run against one database; result leases keep them from double-processing.
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
		),
		fx.Provide(
			repository.NewTestRepository,
			repository.NewTestResultRepository,
		),
		fx.Provide(
			service.NewGeminiLLMService,
			service.NewAnalysisDispatcher,
			worker.NewScheduler,
		),
		fx.Invoke(StartScheduler),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start worker")
	}
	<-app.Done()
	log.Info().Msg("Worker shutting down gracefully...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop worker cleanly")
	}
}

func StartScheduler(lc fx.Lifecycle, scheduler *worker.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}
