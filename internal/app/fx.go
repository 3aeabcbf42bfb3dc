package app

import (
	"context"
	"net/http"

	"github.com/notihub/gateway/internal/config"
	"github.com/notihub/gateway/internal/consumer"
	"github.com/notihub/gateway/internal/credentials"
	deliveryHTTP "github.com/notihub/gateway/internal/delivery/http"
	"github.com/notihub/gateway/internal/delivery/statusserver"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/logger"
	"github.com/notihub/gateway/internal/senders"
	"github.com/notihub/gateway/internal/service"
	"github.com/notihub/gateway/internal/storage/postgres"
	"github.com/notihub/gateway/internal/storage/rabbitmq"
	"github.com/notihub/gateway/internal/storage/redis"
	"github.com/notihub/gateway/internal/workers"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// CommonModule provides dependencies shared between the ingestion API and
// the delivery worker.
var CommonModule = fx.Options(
	fx.Provide(
		// Core components
		config.NewConfig,
		logger.NewLogger,

		// Storage Layer - concrete implementations
		postgres.NewPool,
		redis.NewClient,
		rabbitmq.NewConnection,
		redis.NewNotificationCache,
		postgres.NewNotificationRepository,
		redis.NewNotificationQueue,
		rabbitmq.NewAuditPublisher,

		// Service Layer
		service.NewNotificationService,
	),

	fx.Decorate(func(
		pgRepo *postgres.NotificationRepository,
		cache *redis.NotificationCache,
		logger *zerolog.Logger,
	) repo.NotificationRepository {
		return redis.NewCachedNotificationRepository(pgRepo, cache, logger)
	}),
)

// APIModule defines the Fx module for the ingestion HTTP application.
var APIModule = fx.Options(
	CommonModule,
	fx.Provide(
		deliveryHTTP.NewHandlers,
		deliveryHTTP.NewServer,
	),

	fx.Invoke(func(server *deliveryHTTP.Server, lc fx.Lifecycle, logger *zerolog.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Fatal().Err(err).Msg("ingestion http server crashed")
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
		})
	}),
)

// WorkerModule defines the Fx module for the background delivery worker:
// the channel dispatcher, queue consumer, credential cache and its own
// status HTTP server.
var WorkerModule = fx.Options(
	CommonModule,
	fx.Provide(
		// Push channel's Credential Cache. The token source reads
		// cfg.Push.CredentialsFile, so it's built from cfg rather than a
		// bare string, for the same DI-ambiguity reason every other
		// constructor here takes *config.Config instead of primitives.
		func(cfg *config.Config) credentials.TokenSource {
			return credentials.NewFileTokenSource(cfg.Push.CredentialsFile)
		},
		credentials.New,

		// Channel senders
		senders.NewPushSender,
		senders.NewEmailSender,
		senders.NewSMSSender,

		// Dispatch and consumption
		workers.NewDispatcher,
		consumer.New,

		// statusserver.NewServer wants a StatusSource interface rather
		// than a concrete *consumer.Consumer, to keep that package free
		// of an import on consumer; this adapter bridges the two without
		// losing the concrete type the lifecycle hook below still needs
		// to start the consumer's own Run loop.
		func(c *consumer.Consumer) statusserver.StatusSource { return c },
		statusserver.NewServer,
	),

	fx.Invoke(func(
		cache *credentials.Cache,
		dispatcher *workers.Dispatcher,
		cons *consumer.Consumer,
		status *statusserver.Server,
		lc fx.Lifecycle,
		logger *zerolog.Logger,
	) {
		var cancel context.CancelFunc

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// The initial token fetch is fatal here: a delivery
				// worker that can never authenticate push sends should
				// fail fast at startup rather than silently dead-letter
				// every push job it pops.
				if err := cache.Refresh(ctx); err != nil {
					return err
				}

				var workerCtx context.Context
				workerCtx, cancel = context.WithCancel(context.Background())

				go dispatcher.Run(workerCtx)
				go cons.Run(workerCtx)

				go func() {
					if err := status.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error().Err(err).Msg("worker status server crashed")
					}
				}()

				return nil
			},
			OnStop: func(ctx context.Context) error {
				if cancel != nil {
					cancel()
				}
				return status.Shutdown(ctx)
			},
		})
	}),
)
