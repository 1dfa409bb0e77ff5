package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	adminapp "github.com/storefront/backend/internal/application/admin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/application/maintenance"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/storefront/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:generate go run github.com/swaggo/swag/v2/cmd/swag init -g main.go -d ./,../../internal/interfaces/http -o ../../docs

//	@title			Storefront API
//	@version		1.0
//	@description	Storefront backend: catalog, carts, checkout, orders and the admin dashboard.

//	@contact.name	API Support
//	@contact.url	https://github.com/storefront/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, logs, err := newLogger(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logs, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
	_ = logger.Sync(log)
}

func run(ctx context.Context, cfg *config.Config, logs *telemetry.LoggerProvider, log *zap.Logger) error {
	log.Info("Starting storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Shutdown hooks run in reverse order of registration, on a context
	// detached from the signal.
	var cleanups []cleanup
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](shutdownCtx)
		}
	}()

	obs, err := newObservability(ctx, cfg, logs, log)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, func(ctx context.Context) { obs.shutdown(ctx, log) })
	meter := obs.appMeter("storefront")

	db, closeDB, err := openDatabase(ctx, cfg, meter, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	cleanups = append(cleanups, closeDB)
	log.Info("Database connected")

	st, err := newStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	cleanups = append(cleanups, st.close)

	objects, err := newObjectStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	invoices, closeInvoices, err := newInvoiceRenderer(cfg, log)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, closeInvoices)

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	tokenRepo := persistence.NewGormRefreshTokenRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus: audit log, product cache invalidation and business metrics
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	eventBus.Subscribe(catalogapp.NewProductCacheInvalidator(st.productCache, log))
	if meter != nil {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:    meter,
			Logger:   log,
			Provider: telemetry.NewGormStoreMetricsProvider(db.DB, cfg.Shop.LowStockThreshold),
		})
		if err != nil {
			log.Warn("Business metrics unavailable", zap.Error(err))
		} else {
			eventBus.Subscribe(businessMetrics)
			businessMetrics.StartPeriodicCollection(ctx, time.Minute)
			cleanups = append(cleanups, func(context.Context) { businessMetrics.Stop() })
		}
	}
	if err := eventBus.Start(ctx); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	cleanups = append(cleanups, func(ctx context.Context) {
		if err := eventBus.Stop(ctx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	})

	// Application services
	tokens := auth.NewTokenIssuer(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, tokenRepo, txScope, tokens, st.revocations, eventBus,
		identityapp.AuthServiceConfig{
			MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
			LockDuration:     cfg.Auth.LockDuration,
		}, log)
	userService := identityapp.NewUserService(userRepo, authService, log)

	productService := catalogapp.NewProductService(productRepo, categoryRepo, orderRepo, cartRepo, log,
		catalogapp.WithObjectStorage(objects),
		catalogapp.WithProductCache(st.productCache),
		catalogapp.WithEventPublisher(eventBus),
		catalogapp.WithProductConfig(catalogapp.ProductServiceConfig{
			UploadURLExpiry:   cfg.Storage.PresignExpiration,
			DownloadURLExpiry: cfg.Storage.PresignExpiration,
			MaxImageSize:      cfg.Storage.MaxImageSize,
		}),
	)
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo, log)
	cartService := cartapp.NewCartService(txScope, cartRepo, productRepo, log)

	orderOpts := []orderapp.OrderServiceOption{
		orderapp.WithIdempotencyStore(st.idempotency),
		orderapp.WithEventPublisher(eventBus),
	}
	if invoices != nil {
		orderOpts = append(orderOpts, orderapp.WithInvoices(invoices, objects))
	}
	orderService := orderapp.NewOrderService(txScope, orderRepo, orderapp.OrderServiceConfig{
		FlatShippingFee:       cfg.Shop.FlatShippingFee,
		FreeShippingThreshold: cfg.Shop.FreeShippingThreshold,
		IdempotencyTTL:        cfg.Shop.IdempotencyTTL,
	}, log, orderOpts...)
	dashboardService := adminapp.NewDashboardService(userRepo, productRepo, orderRepo, log)

	// Maintenance jobs
	if cfg.Scheduler.Enabled {
		jobs := maintenance.NewService(tokenRepo, cartRepo, orderService, maintenance.Config{
			ExpiredTokenRetention: cfg.Scheduler.ExpiredTokenRetainAt,
			GuestCartTTL:          cfg.Shop.GuestCartTTL,
			PendingOrderTTL:       cfg.Shop.PendingOrderTTL,
		}, log)
		stopJobs, err := startMaintenance(ctx, cfg, jobs, log)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, stopJobs)
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.UseJSONFieldNames()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	// Order: request id, panic recovery, tracing so request logs carry the
	// trace id, then headers, CORS, body limit and metrics.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	engine.Use(middleware.SpanOutcome())
	engine.Use(logger.RequestLogger(log))
	engine.Use(middleware.SecurityHeaders(securityConfig(cfg)))
	engine.Use(middleware.CORS(corsConfig(cfg)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.HTTPMetrics(meter))

	jwtConfig := middleware.JWTMiddlewareConfig{
		Tokens:      tokens,
		Revocations: st.revocations,
		Logger:      log,
	}
	requireUser := middleware.JWTAuth(jwtConfig)
	requireAdmin := middleware.RequireAdmin()

	health := handler.NewHealthHandler().Require("database", db.Ping)
	if st.redis != nil {
		health.Optional("redis", func(ctx context.Context) error {
			return st.redis.Ping(ctx).Err()
		})
	}
	engine.GET("/health", health.Health)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, requireUser, requireAdmin),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	api := router.New(engine, "v1")
	if cfg.HTTP.RateLimitEnabled {
		api.Use(middleware.RateLimit(st.apiLimiter, log))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	guards := router.Guards{
		RequireUser:  requireUser,
		OptionalUser: middleware.OptionalJWTAuth(jwtConfig),
		RequireAdmin: requireAdmin,
		PostAuth:     []gin.HandlerFunc{middleware.SpanCaller()},
	}
	if cfg.Telemetry.ProfilingEnabled {
		guards.PostAuth = append(guards.PostAuth, middleware.ProfileLabels())
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		guards.AuthRateLimit = middleware.RateLimitByKey(st.authLimiter, log, func(c *gin.Context) string {
			return "auth:" + c.ClientIP()
		})
	}

	api.Add(router.Storefront(router.Handlers{
		Auth:     handler.NewAuthHandler(authService, cartService),
		Product:  handler.NewProductHandler(productService),
		Category: handler.NewCategoryHandler(categoryService),
		Cart:     handler.NewCartHandler(cartService),
		Order:    handler.NewOrderHandler(orderService),
		Admin:    handler.NewAdminHandler(dashboardService, userService, cfg.Shop.LowStockThreshold),
	}, guards)...).Mount()

	return serve(ctx, cfg, engine, log)
}

// serve runs the HTTP server until ctx is cancelled, then drains it
func serve(ctx context.Context, cfg *config.Config, engine *gin.Engine, log *zap.Logger) error {
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}

// startMaintenance runs the cleanup jobs on the worker pool, triggered on
// their configured intervals
func startMaintenance(ctx context.Context, cfg *config.Config, jobs *maintenance.Service, log *zap.Logger) (cleanup, error) {
	sched := scheduler.New(scheduler.Config{
		Workers:    cfg.Scheduler.WorkerCount,
		JobTimeout: cfg.Scheduler.JobTimeout,
		Retries:    cfg.Scheduler.RetryAttempts,
		RetryDelay: cfg.Scheduler.RetryDelay,
	}, jobs, log.Named("scheduler"))
	if err := sched.Start(ctx); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	tasks := jobs.Tasks(cfg.Scheduler.TokenPurgeInterval, cfg.Scheduler.CartCleanupInterval, cfg.Scheduler.OrderExpiryInterval)
	trigger, err := scheduler.NewTrigger(tasks, sched, log.Named("scheduler"), scheduler.RunOnStart())
	if err != nil {
		_ = sched.Stop(ctx)
		return nil, fmt.Errorf("maintenance trigger: %w", err)
	}
	if err := trigger.Start(ctx); err != nil {
		_ = sched.Stop(ctx)
		return nil, fmt.Errorf("maintenance trigger: %w", err)
	}
	log.Info("Maintenance jobs scheduled",
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", cfg.Scheduler.WorkerCount),
	)

	return func(ctx context.Context) {
		if err := trigger.Stop(ctx); err != nil {
			log.Error("Error stopping maintenance trigger", zap.Error(err))
		}
		if err := sched.Stop(ctx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}, nil
}

func securityConfig(cfg *config.Config) middleware.SecurityConfig {
	sec := middleware.DefaultSecurityConfig()
	if cfg.App.IsProduction() {
		sec.HSTS = 365 * 24 * time.Hour
	}
	return sec
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	return cors
}
