package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/invoice"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cleanup releases a resource on shutdown
type cleanup func(ctx context.Context)

// observability bundles the OpenTelemetry providers and the profiler
type observability struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

// appMeter returns the meter for application instruments, or nil when
// metrics are disabled.
func (o *observability) appMeter(name string) metric.Meter {
	if o.meter == nil {
		return nil
	}
	return o.meter.Meter(name)
}

func (o *observability) shutdown(ctx context.Context, log *zap.Logger) {
	if o.profiler != nil {
		if err := o.profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if err := o.meter.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := o.tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := o.logs.Shutdown(ctx); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}
}

// newLogger builds the application logger. When log export is enabled the
// console/file core is teed with the OpenTelemetry bridge.
func newLogger(ctx context.Context, cfg *config.Config) (*zap.Logger, *telemetry.LoggerProvider, error) {
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
	if !cfg.Telemetry.Enabled || !cfg.Telemetry.LogsEnabled {
		log, err := logger.New(logCfg)
		return log, nil, err
	}

	bootstrap, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	provider, err := collector(cfg.Telemetry).Logs(ctx, bootstrap)
	if err != nil {
		return nil, nil, err
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: provider,
		Level:          level,
	})
	log := telemetry.NewBridgedLogger(logger.NewCore(logCfg), otelCore,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return log, provider, nil
}

func collector(tc config.TelemetryConfig) telemetry.Collector {
	return telemetry.Collector{Endpoint: tc.CollectorEndpoint, ServiceName: tc.ServiceName, Insecure: tc.Insecure}
}

// newObservability starts tracing, metrics and continuous profiling
func newObservability(ctx context.Context, cfg *config.Config, logs *telemetry.LoggerProvider, log *zap.Logger) (*observability, error) {
	o := &observability{logs: logs}
	tc := cfg.Telemetry

	var err error
	if tc.Enabled {
		if o.tracer, err = collector(tc).Traces(ctx, tc.SamplingRatio, log); err != nil {
			return nil, err
		}
	} else {
		log.Info("Tracing disabled")
	}
	if tc.Enabled && tc.MetricsEnabled {
		if o.meter, err = collector(tc).Metrics(ctx, 0, log); err != nil {
			o.shutdown(ctx, log)
			return nil, err
		}
	}

	o.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         tc.ProfilingEnabled,
		ServerAddress:   tc.PyroscopeAddress,
		ApplicationName: tc.ServiceName,
	}, log)
	if err != nil {
		o.shutdown(ctx, log)
		return nil, fmt.Errorf("profiler: %w", err)
	}
	if tc.ProfilingEnabled {
		o.tracer.EnableSpanProfiles()
	}
	return o, nil
}

// openDatabase connects GORM with the zap logger, otelgorm tracing and the
// query metrics plugin.
func openDatabase(ctx context.Context, cfg *config.Config, meter metric.Meter, log *zap.Logger) (*persistence.Database, cleanup, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.DBLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	)
	db, err := persistence.Open(ctx, &cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return nil, nil, err
	}

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := tracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	closeDB := func(context.Context) {
		if stats, err := db.PoolStats(); err == nil {
			log.Info("Database pool at shutdown",
				zap.Int("open", stats.Open),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration),
			)
		}
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}
	if meter == nil {
		return db, closeDB, nil
	}

	dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Warn("Database metrics unavailable", zap.Error(err))
		return db, closeDB, nil
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := dbMetrics.ObservePool(sqlDB); err != nil {
			log.Warn("Connection pool metrics unavailable", zap.Error(err))
		}
	}
	if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
		log.Warn("Database metrics plugin not registered", zap.Error(err))
	}

	return db, func(ctx context.Context) {
		dbMetrics.Stop()
		closeDB(ctx)
	}, nil
}

// stores are the shared state backends. With Redis disabled every store
// falls back to process memory, which only suits a single instance.
type stores struct {
	redis        redis.UniversalClient
	revocations  auth.Revocations
	productCache catalogapp.ProductCache
	idempotency  shared.IdempotencyStore
	apiLimiter   middleware.Limiter
	authLimiter  middleware.Limiter
	close        cleanup
}

func newStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if !cfg.Redis.Enabled {
		log.Warn("Redis disabled, using in-memory stores")
		idempotency := cache.NewLocalIdempotency(0)
		apiLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		return &stores{
			revocations:  auth.NewMemoryRevocations(),
			productCache: cache.NewInMemoryProductCache(cfg.Shop.ProductCacheTTL),
			idempotency:  idempotency,
			apiLimiter:   apiLimiter,
			authLimiter:  authLimiter,
			close: func(context.Context) {
				apiLimiter.Stop()
				authLimiter.Stop()
				_ = idempotency.Close()
			},
		}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	return &stores{
		redis:        client,
		revocations:  auth.NewRedisRevocations(client),
		productCache: cache.NewRedisProductCache(client, cfg.Shop.ProductCacheTTL, log),
		idempotency:  cache.NewRedisIdempotencyStore(client),
		apiLimiter:   middleware.NewRedisRateLimiter(client, "api", cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow),
		authLimiter:  middleware.NewRedisRateLimiter(client, "auth", cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow),
		close: func(context.Context) {
			if err := client.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		},
	}, nil
}

// objectStore holds product images and cached invoices
type objectStore interface {
	catalogapp.ObjectStorageService
	orderapp.InvoiceStore
}

func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (objectStore, error) {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, images and invoices are kept in memory")
		return storage.NewMemoryObjectStorage(), nil
	}
	bucket, err := storage.NewBucket(ctx, &cfg.Storage, storage.WithLogger(log.Named("storage")))
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("object storage bucket %s: %w", bucket.Name(), err)
	}
	return bucket, nil
}

// newInvoiceRenderer returns nil when invoices are disabled
func newInvoiceRenderer(cfg *config.Config, log *zap.Logger) (*invoice.Renderer, cleanup, error) {
	if !cfg.Invoice.Enabled {
		return nil, func(context.Context) {}, nil
	}
	opts := []invoice.ChromeOption{
		invoice.WithoutSandbox(),
		invoice.WithPrintTimeout(cfg.Invoice.Timeout),
		invoice.WithChromeLogger(log),
	}
	if cfg.Invoice.ChromeURL != "" {
		opts = append(opts, invoice.WithRemoteChrome(cfg.Invoice.ChromeURL))
	}
	chrome := invoice.NewChrome(opts...)
	renderer, err := invoice.NewRenderer(invoice.Company{
		Name:    cfg.Invoice.CompanyName,
		Address: cfg.Invoice.CompanyAddress,
	}, cfg.Shop.Currency, chrome, log)
	if err != nil {
		_ = chrome.Close()
		return nil, nil, fmt.Errorf("invoice renderer: %w", err)
	}
	return renderer, func(context.Context) {
		if err := chrome.Close(); err != nil {
			log.Error("Error closing browser", zap.Error(err))
		}
	}, nil
}
