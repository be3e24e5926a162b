package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appcart "github.com/farmstore/backend/internal/application/cart"
	catalogapp "github.com/farmstore/backend/internal/application/catalog"
	"github.com/farmstore/backend/internal/application/checkout"
	"github.com/farmstore/backend/internal/application/dashboard"
	reportapp "github.com/farmstore/backend/internal/application/report"
	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/cache"
	"github.com/farmstore/backend/internal/infrastructure/config"
	"github.com/farmstore/backend/internal/infrastructure/event"
	csvimport "github.com/farmstore/backend/internal/infrastructure/import"
	"github.com/farmstore/backend/internal/infrastructure/logger"
	"github.com/farmstore/backend/internal/infrastructure/persistence"
	"github.com/farmstore/backend/internal/infrastructure/scheduler"
	"github.com/farmstore/backend/internal/infrastructure/storage"
	"github.com/farmstore/backend/internal/infrastructure/telemetry"
	"github.com/farmstore/backend/internal/interfaces/http/handler"
	"github.com/farmstore/backend/internal/interfaces/http/middleware"
	"github.com/farmstore/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting farm store backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = lp.Bridge(log)

	storeMetrics, err := telemetry.NewStoreMetrics(mp.Meter("farmstore"), log)
	if err != nil {
		log.Fatal("Failed to create store metrics", zap.Error(err))
	}

	// Backing store
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level)),
		persistence.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithTracing(cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	seed := catalog.BuiltinCatalog()
	if cfg.Database.SeedFile != "" {
		seed, err = csvimport.LoadCatalogFile(afero.NewOsFs(), cfg.Database.SeedFile,
			csvimport.WithDelimiter([]rune(cfg.Database.SeedDelimiter)[0]))
		if err != nil {
			log.Fatal("Failed to load catalog file", zap.String("path", cfg.Database.SeedFile), zap.Error(err))
		}
		log.Info("Loaded catalog file", zap.String("path", cfg.Database.SeedFile), zap.Int("products", len(seed)))
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		n, err := db.SeedCatalog(ctx, seed)
		if err != nil {
			log.Fatal("Failed to seed products", zap.Error(err))
		}
		if n > 0 {
			log.Info("Seeded catalog", zap.Int("products", n))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver()))

	// Redis is optional; without it carts live on disk and pushes stay in-process
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
	}

	feed, err := event.NewRowChangeFeed(cfg.Push, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create row change feed", zap.Error(err))
	}
	defer func() {
		_ = feed.Close()
	}()

	kv, err := storage.NewStore(cfg.Cart, redisClient)
	if err != nil {
		log.Fatal("Failed to open cart storage", zap.Error(err))
	}

	idem, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithRedisClient(redisClient),
		cache.WithInMemoryFallback(true),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idem.Close()
	}()

	// Repositories announce committed rows on the feed
	productRepo := persistence.NewGormProductRepository(db.DB, persistence.WithRowChangePublisher(feed))
	orderRepo := persistence.NewGormOrderRepository(db.DB, persistence.WithRowChangePublisher(feed))

	// Application services
	ledger := catalogapp.NewStockLedgerWithProviders(log.Named("stock"),
		shared.Provider[[]catalog.Product]{Name: catalog.SourceStore, Fetch: productRepo.FindAll},
		catalogapp.StaticProvider(seed),
	)
	ledger.SetStoreMetrics(storeMetrics)

	carts := appcart.NewManager(cfg.Cart.Step, kv, log.Named("cart"))
	cartSweep, err := scheduler.NewIntervalScheduler(scheduler.IntervalSchedulerConfig{
		Name:     "cart-sweep",
		Interval: cfg.Cart.SweepInterval,
	}, func(context.Context) error {
		carts.EvictIdle(cfg.Cart.SessionIdle)
		return nil
	}, log.Named("cart"))
	if err != nil {
		log.Fatal("Failed to create cart sweep", zap.Error(err))
	}
	queue := checkout.NewOfflineQueue(kv, log.Named("offline"))

	checkoutService := checkout.NewService(carts, ledger, orderRepo, queue, log.Named("checkout"))
	checkoutService.SetStoreMetrics(storeMetrics)

	reconciler := checkout.NewReconciler(queue, orderRepo, idem, checkout.ReconcilerConfig{
		Interval:       cfg.Offline.ReconcileInterval,
		IdempotencyTTL: cfg.Offline.IdempotencyTTL,
	}, log.Named("reconcile"))
	reconciler.SetStoreMetrics(storeMetrics)

	readModel := reportapp.NewSalesReadModel(orderRepo, queue, reportapp.WithLogger(log.Named("report")))

	controller, err := dashboard.NewSyncController(readModel, feed, dashboard.Config{
		PollInterval: cfg.Dashboard.PollInterval,
		PushDebounce: cfg.Dashboard.PushDebounce,
		LoadTimeout:  cfg.Dashboard.LoadTimeout,
		Limits: reportapp.Limits{
			TopProducts:  cfg.Dashboard.TopProductsLimit,
			RecentOrders: cfg.Dashboard.RecentOrdersLimit,
		},
	}, log.Named("dashboard"))
	if err != nil {
		log.Fatal("Failed to create dashboard controller", zap.Error(err))
	}
	controller.SetStoreMetrics(storeMetrics)

	if err := controller.Start(ctx); err != nil {
		log.Fatal("Failed to start dashboard", zap.Error(err))
	}
	if err := cartSweep.Start(ctx); err != nil {
		log.Fatal("Failed to start cart sweep", zap.Error(err))
	}
	if cfg.Offline.ReconcileEnabled {
		if err := reconciler.Start(ctx); err != nil {
			log.Fatal("Failed to start offline reconciler", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up request validation", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	// Order matters: ids first so every later layer can log and tag them
	engine.Use(
		middleware.RequestID(),
		middleware.SessionID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanAttributes(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(mp, log),
		middleware.Secure(),
		middleware.CORS(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	systemHandler := handler.NewSystemHandler(version, map[string]handler.HealthCheck{
		"database": db.Ping,
		"storage": func(ctx context.Context) error {
			_, err := kv.Keys(ctx, "health/")
			return err
		},
	})
	engine.GET("/health", systemHandler.Health)

	dashboardHandler := handler.NewDashboardHandler(controller, readModel, handler.WithDashboardLogger(log.Named("sse")))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.StoreRoutes(router.Handlers{
			Stock:     handler.NewStockHandler(ledger),
			Cart:      handler.NewCartHandler(carts, ledger),
			Checkout:  handler.NewCheckoutHandler(checkoutService),
			Offline:   handler.NewOfflineHandler(queue, reconciler),
			Orders:    handler.NewOrderHandler(orderRepo, readModel),
			Dashboard: dashboardHandler,
			System:    systemHandler,
		})...).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stopping the dashboard closes every open stream so Shutdown does not wait on them
	controller.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := cartSweep.Stop(shutdownCtx); err != nil {
		log.Warn("Cart sweep did not stop cleanly", zap.Error(err))
	}
	if err := reconciler.Stop(shutdownCtx); err != nil {
		log.Warn("Offline reconciler did not stop cleanly", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Log export shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
