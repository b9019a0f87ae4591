package main

import (
	"context"
	"fmt"

	appasset "github.com/stockroom/backend/internal/application/asset"
	appinventory "github.com/stockroom/backend/internal/application/inventory"
	appnumbering "github.com/stockroom/backend/internal/application/numbering"
	appprocurement "github.com/stockroom/backend/internal/application/procurement"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/cache"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"github.com/stockroom/backend/internal/infrastructure/lock"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"github.com/stockroom/backend/internal/infrastructure/persistence"
	"github.com/stockroom/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the wired services of one CLI invocation
type app struct {
	log          *zap.Logger
	registration *appprocurement.RegistrationService
	receipts     *appprocurement.ReceiptService
	queries      *appprocurement.QueryService
	stock        *appinventory.StockService
	assets       *appasset.AssetService

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, base *zap.Logger) (*app, error) {
	a := &app{log: base}

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, base)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.closers = append(a.closers, providers.Shutdown)
	a.log = providers.BridgeLogger(base, zapcore.InfoLevel)

	metrics, err := telemetry.NewProcurementMetrics(providers.Meter("stockroom/procurement"))
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = cfg.Telemetry.DBTraceEnabled
	tracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		tracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	if cfg.Database.Driver == "sqlite" {
		tracing.DBSystem = "sqlite"
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        a.log.Named("gorm"),
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: tracing.SlowQueryThresh,
		Tracing:       tracing,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	store, locker, err := a.coordination(ctx, cfg)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	numberer := appnumbering.FromConfig(cfg.Numbering, appnumbering.WithMetrics(metrics))
	scope := db.Scope()

	a.registration = appprocurement.NewRegistrationService(scope, numberer, a.log)
	a.registration.SetMetrics(metrics)

	a.receipts = appprocurement.NewReceiptService(scope, numberer, cfg.Procurement, a.log)
	a.receipts.SetIdempotencyStore(store)
	a.receipts.SetLocker(locker)
	a.receipts.SetMetrics(metrics)

	a.queries = appprocurement.NewQueryService(scope)

	a.stock = appinventory.NewStockService(scope, numberer, a.log)
	a.stock.SetMetrics(metrics)

	a.assets = appasset.NewAssetService(scope, numberer, a.log)
	a.assets.SetMetrics(metrics)
	return a, nil
}

// coordination picks the idempotency store and order locker.
// With procurement.use_redis both live in Redis and an unreachable Redis is fatal.
func (a *app) coordination(ctx context.Context, cfg *config.Config) (shared.IdempotencyStore, shared.Locker, error) {
	factory := cache.NewIdempotencyStoreFactory(
		cache.WithLogger(a.log),
		cache.WithInMemoryFallback(!cfg.Procurement.UseRedis),
	)

	if !cfg.Procurement.UseRedis {
		store, err := factory.CreateStore(nil)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		return store, lock.NewLocalLocker(), nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	// the store owns the client and closes it
	store, err := factory.CreateStore(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	return store, lock.NewRedisLocker(client, lock.WithLogger(a.log)), nil
}

// close runs the closers in reverse order of registration
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown step failed", zap.Error(err))
		}
	}
	a.closers = nil
}
