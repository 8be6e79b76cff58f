// Package dependency provides dependency injection for the application.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/propertyledger/backend/config"
	"github.com/propertyledger/backend/internal/application/adapter"
	"github.com/propertyledger/backend/internal/application/usecase/balance"
	"github.com/propertyledger/backend/internal/application/usecase/ledger"
	"github.com/propertyledger/backend/internal/application/usecase/query"
	"github.com/propertyledger/backend/internal/application/usecase/reconciliation"
	"github.com/propertyledger/backend/internal/application/usecase/rollup"
	"github.com/propertyledger/backend/internal/infra/db"
	"github.com/propertyledger/backend/internal/infra/events"
	"github.com/propertyledger/backend/internal/infra/server/router"
	"github.com/propertyledger/backend/internal/integration/adapters"
	"github.com/propertyledger/backend/internal/integration/cache"
	"github.com/propertyledger/backend/internal/integration/entrypoint/controller"
	"github.com/propertyledger/backend/internal/integration/entrypoint/middleware"
	"github.com/propertyledger/backend/internal/integration/lock"
	"github.com/propertyledger/backend/internal/integration/messaging/kafka"
	"github.com/propertyledger/backend/internal/integration/persistence"
	"github.com/propertyledger/backend/internal/integration/scheduler"
)

const (
	// dedupKeyPrefix namespaces deduplication keys in Redis.
	dedupKeyPrefix = "ledger:dedup:"
	// writeLockPrefix namespaces the entry write locks in Redis.
	writeLockPrefix = "ledger:write-lock:"
)

// Injector holds all application dependencies.
type Injector struct {
	Config      *config.Config
	Router      *router.Router
	Events      *events.Router
	Maintainer  *balance.Maintainer
	Aggregator  *rollup.Aggregator
	Reconcile   *reconciliation.ReconcileUseCase
	Consumer    *kafka.Consumer   // nil unless the Kafka transport is configured
	Worker      *scheduler.Worker // nil unless a reconciliation interval is configured
	publisher   *kafka.Publisher
	tokenIssuer adapter.TokenService
}

// NewInjector creates a new dependency injector with all dependencies wired.
// redisConn may be nil, in which case in-process locks and deduplication are used.
func NewInjector(cfg *config.Config, database *db.Database, redisConn *db.Redis) (*Injector, error) {
	gormDB := database.DB()

	// Create repositories
	entryRepo := persistence.NewLedgerEntryRepository(gormDB)
	rollupRepo := persistence.NewRollupRepository(gormDB)
	propertyRepo := persistence.NewPropertyRepository(gormDB)
	reconciliationSource := persistence.NewReconciliationRepository(gormDB)

	// Create per-property lockers. Entry writes and balance maintenance use
	// separate lock spaces since a write holds its lock while the in-process
	// router runs maintenance for the same property.
	var locker, writeLocker adapter.PropertyLocker
	switch cfg.Maintenance.LockBackend {
	case config.LockBackendRedis:
		if redisConn == nil {
			return nil, errors.New("lock backend redis requires REDIS_URL")
		}
		locker = lock.NewRedisLocker(redisConn.Client(), lock.RedisConfig{
			Prefix:        lock.DefaultRedisConfig().Prefix,
			TTL:           cfg.Maintenance.LockTTL,
			RetryInterval: cfg.Maintenance.LockRetry,
		})
		writeLocker = lock.NewRedisLocker(redisConn.Client(), lock.RedisConfig{
			Prefix:        writeLockPrefix,
			TTL:           cfg.Maintenance.LockTTL,
			RetryInterval: cfg.Maintenance.LockRetry,
		})
	case config.LockBackendMemory, "":
		locker = lock.NewKeyedLocker()
		writeLocker = lock.NewKeyedLocker()
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Maintenance.LockBackend)
	}

	// Create deduplicator
	var dedup adapter.Deduplicator
	if redisConn != nil {
		dedup = cache.NewRedisDeduplicator(redisConn.Client(), dedupKeyPrefix, cfg.Maintenance.DedupTTL)
	} else {
		dedup = cache.NewMemoryDeduplicator(cfg.Maintenance.DedupTTL)
	}

	// Create maintainers
	maintainer := balance.NewMaintainer(entryRepo, locker, balance.Config{
		PageSize: cfg.Maintenance.PageSize,
	})
	aggregator := rollup.NewAggregator(rollupRepo)

	eventRouter := events.NewRouter(maintainer, aggregator, events.Config{
		BalanceShards:     cfg.Maintenance.BalanceShards,
		ShardQueueSize:    cfg.Maintenance.ShardQueueSize,
		RollupConcurrency: cfg.Maintenance.RollupConcurrency,
		HandlerTimeout:    cfg.Maintenance.HandlerTimeout,
	}, events.WithDeduplicator(dedup))

	inj := &Injector{
		Config:     cfg,
		Events:     eventRouter,
		Maintainer: maintainer,
		Aggregator: aggregator,
	}

	// Create event transport
	var publisher adapter.EventPublisher
	switch cfg.Events.Transport {
	case config.TransportKafka:
		kafkaCfg := kafka.Config{
			Brokers: cfg.Events.KafkaBrokers,
			Topic:   cfg.Events.KafkaTopic,
			GroupID: cfg.Events.KafkaGroupID,
		}
		inj.publisher = kafka.NewPublisher(kafkaCfg)
		inj.Consumer = kafka.NewConsumer(kafkaCfg, eventRouter, kafka.ConsumerConfig{
			MaxAttempts:  cfg.Events.MaxAttempts,
			RetryBackoff: cfg.Events.ConsumerRetry,
		})
		publisher = inj.publisher
	case config.TransportInProcess, "":
		publisher = eventRouter
	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.Events.Transport)
	}

	// Create adapters/services
	tokenService := adapters.NewTokenService(cfg.JWT.Secret)
	inj.tokenIssuer = tokenService

	// Create ledger use cases
	createEntryUseCase := ledger.NewCreateEntryUseCase(entryRepo, propertyRepo, publisher)
	acceptEntryUseCase := ledger.NewAcceptEntryUseCase(entryRepo, propertyRepo, writeLocker, publisher)
	updateEntryUseCase := ledger.NewUpdateEntryUseCase(entryRepo, propertyRepo, writeLocker, publisher)
	deleteEntryUseCase := ledger.NewDeleteEntryUseCase(entryRepo, propertyRepo, writeLocker, publisher)

	// Create query use cases
	getBalanceUseCase := query.NewGetBalanceUseCase(propertyRepo, maintainer)
	queryRollupUseCase := query.NewQueryRollupUseCase(propertyRepo, aggregator)

	// Create reconciliation use cases
	reconcileUseCase := reconciliation.NewReconcileUseCase(reconciliationSource, rollupRepo, cfg.Reconciliation.Concurrency)
	driftCheckUseCase := reconciliation.NewDriftCheckUseCase(reconciliationSource, rollupRepo, reconcileUseCase)
	inj.Reconcile = reconcileUseCase

	if cfg.Reconciliation.Interval > 0 {
		inj.Worker = scheduler.NewWorker(reconcileUseCase, maintainer, reconciliationSource, scheduler.WorkerConfig{
			Interval: cfg.Reconciliation.Interval,
		}, scheduler.WithMaintenanceMonitor(eventRouter))
	}

	// Create controllers
	var redisHealthChecker func() bool
	if redisConn != nil {
		redisHealthChecker = redisConn.HealthCheck
	}
	healthController := controller.NewHealthController(database.HealthCheck, redisHealthChecker, eventRouter)
	entryController := controller.NewEntryController(
		createEntryUseCase,
		acceptEntryUseCase,
		updateEntryUseCase,
		deleteEntryUseCase,
	)
	statisticsController := controller.NewStatisticsController(getBalanceUseCase, queryRollupUseCase)
	reconciliationController := controller.NewReconciliationController(reconcileUseCase, driftCheckUseCase)

	// Create middleware
	var adminRateLimiter *middleware.RateLimiter
	if cfg.Server.RateLimit.Enabled {
		adminRateLimiter = middleware.NewRateLimiterWithConfig(
			cfg.Server.RateLimit.MaxRequests,
			cfg.Server.RateLimit.Window,
			middleware.ByUser,
		)
	}
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Create router
	inj.Router = router.NewRouter(
		healthController,
		entryController,
		statisticsController,
		reconciliationController,
		adminRateLimiter,
		authMiddleware,
	)

	return inj, nil
}

// TokenService returns the token service used by the auth middleware.
func (i *Injector) TokenService() adapter.TokenService {
	return i.tokenIssuer
}

// Close drains pending maintenance and closes the event transport.
func (i *Injector) Close(ctx context.Context) error {
	var errs []error
	if i.publisher != nil {
		if err := i.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close kafka publisher: %w", err))
		}
	}
	if i.Consumer != nil {
		if err := i.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close kafka consumer: %w", err))
		}
	}
	if err := i.Events.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain event router: %w", err))
	}

	slog.Info("Dependencies closed", "errors", len(errs))
	return errors.Join(errs...)
}
