package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	invapp "github.com/stocksync/backend/internal/application/inventory"
	mapapp "github.com/stocksync/backend/internal/application/mapping"
	reportapp "github.com/stocksync/backend/internal/application/report"
	syncapp "github.com/stocksync/backend/internal/application/sync"
	domainsync "github.com/stocksync/backend/internal/domain/sync"
	"github.com/stocksync/backend/internal/infrastructure/auth"
	"github.com/stocksync/backend/internal/infrastructure/cache"
	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/infrastructure/event"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
	"github.com/stocksync/backend/internal/infrastructure/portal"
	"github.com/stocksync/backend/internal/infrastructure/scheduler"
	"github.com/stocksync/backend/internal/infrastructure/storage"
	"github.com/stocksync/backend/internal/infrastructure/telemetry"
	"github.com/stocksync/backend/internal/interfaces/http/handler"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
	"github.com/stocksync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/stocksync/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			StockSync Backend API
//	@version		1.0
//	@description	Ingestion and reconciliation engine - fetches orders, invoices and stock pages from external sales portals, canonicalizes item identities and reconciles purchases against sales
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/stocksync/backend
//	@contact.email	support@stocksync.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@securityDefinitions.apikey	AdminKey
//	@in							header
//	@name						X-Admin-Key
//	@description				Admin key for destructive operations such as deletion approval and hard mapping deletes

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

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
		TimeFormat: cfg.Log.TimeFormat,
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting StockSync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	rootCtx := context.Background()

	// Initialize OpenTelemetry providers. Each returns a no-op
	// implementation when telemetry is disabled, so the wiring below
	// stays unconditional.
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Logger provider shutdown failed", zap.Error(err))
		}
	}()

	// Bridge zap into the OTEL log pipeline so application logs carry
	// trace context
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore)
	}

	// Continuous profiling via Pyroscope (no-op when disabled)
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.App.Name,
		Environment:       cfg.App.Env,
		ProfileCPU:        true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Warn("Failed to start profiler, continuing without profiling", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Warn("Profiler stop failed", zap.Error(err))
			}
		}()
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database observability plugins
	if meterProvider.IsEnabled() {
		dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("stocksync-db"), telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Warn("Failed to create database metrics", zap.Error(err))
		} else if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to register database metrics plugin", zap.Error(err))
		}
	}
	if cfg.Telemetry.DBTraceEnabled {
		dbTracingCfg := telemetry.DefaultDBTracingConfig()
		dbTracingCfg.Enabled = true
		dbTracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		dbTracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		if err := telemetry.NewDBTracingPlugin(dbTracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Redis-backed sync caches, falling back to in-memory implementations
	// for single-instance deployments without Redis
	cacheFactory := cache.NewSyncCacheFactory(cfg.Redis, cache.WithLogger(log))
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Warn("Error closing Redis client", zap.Error(err))
		}
	}()

	sourceGuard, err := cacheFactory.CreateSourceGuard(cfg.Sync.GuardTTL)
	if err != nil {
		log.Fatal("Failed to create source guard", zap.Error(err))
	}
	aliasCache, err := cacheFactory.CreateAliasCache(cfg.Sync.AliasCacheTTL)
	if err != nil {
		log.Fatal("Failed to create alias lookup cache", zap.Error(err))
	}

	// Initialize repositories
	fetchRecordRepo := persistence.NewGormFetchRecordRepository(db.DB)
	orderRepo := persistence.NewGormExternalOrderRepository(db.DB)
	invoiceRepo := persistence.NewGormExternalInvoiceRepository(db.DB)
	stockItemRepo := persistence.NewGormExternalStockItemRepository(db.DB)
	itemRepo := persistence.NewGormInventoryItemRepository(db.DB)
	purchaseRepo := persistence.NewGormPurchaseRepository(db.DB)
	historyRepo := persistence.NewGormStockHistoryRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	mappingRepo := persistence.NewGormItemMappingRepository(db.DB)
	inventoryScope := persistence.NewGormTransactionScope(db.DB)
	syncScope := persistence.NewGormSyncTransactionScope(db.DB)

	// Initialize event bus and subscribe domain event handlers
	eventBus := event.NewInMemoryEventBus(log)

	fetchAlertHandler := syncapp.NewFetchFailedAlertHandler(log)
	eventBus.Subscribe(fetchAlertHandler, fetchAlertHandler.EventTypes()...)

	deletionAuditHandler := invapp.NewDeletionAuditHandler(log)
	eventBus.Subscribe(deletionAuditHandler, deletionAuditHandler.EventTypes()...)

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Warn("Event bus stop failed", zap.Error(err))
		}
	}()

	// Browser automation against the external portals. Screenshots from
	// failed fetches go to object storage when configured, otherwise they
	// are logged and dropped.
	var artifactStore domainsync.ArtifactStore
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewFetchArtifactStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize artifact storage", zap.Error(err))
		}
		artifactStore = s3Store
		log.Info("Fetch artifact storage enabled",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("prefix", cfg.Storage.KeyPrefix),
		)
	} else {
		artifactStore = storage.NewStubArtifactStore(log)
	}

	navigator, err := portal.NewNavigator(cfg.Portal, log)
	if err != nil {
		log.Fatal("Failed to initialize portal navigator", zap.Error(err))
	}
	portalRegistry := portal.NewRegistry(cfg.Portal)
	portalFetcher := portal.NewChromeFetcher(navigator, portalRegistry, artifactStore, log)

	// Initialize application services
	mappingService := mapapp.NewMappingService(mappingRepo, aliasCache, invoiceRepo, orderRepo, stockItemRepo)

	ingestionService := syncapp.NewIngestionService(
		mappingService,
		invoiceRepo,
		orderRepo,
		stockItemRepo,
		syncScope,
		syncapp.IngestionConfig{ProcessBatchSize: cfg.Sync.IngestBatchSize},
		log,
	)

	syncService := syncapp.NewSyncService(
		fetchRecordRepo,
		sourceGuard,
		portalFetcher,
		ingestionService,
		syncapp.FetchConfig{
			MaxAttempts: cfg.Sync.MaxAttempts,
			BaseDelay:   cfg.Sync.BaseDelay,
			MaxDelay:    cfg.Sync.MaxDelay,
			Timeout:     cfg.Sync.FetchTimeout,
		},
		log,
	)
	syncService.SetEventPublisher(eventBus)

	purchaseService := invapp.NewPurchaseService(purchaseRepo, itemRepo, inventoryScope, log)
	purchaseService.SetEventPublisher(eventBus)

	inventoryService := invapp.NewInventoryService(
		itemRepo,
		purchaseRepo,
		movementRepo,
		historyRepo,
		inventoryScope,
		invapp.InventoryConfig{
			StaleItemAge:     cfg.Sync.StaleItemAge,
			DetailTrailLimit: cfg.Sync.DetailTrailLimit,
		},
		log,
	)

	reconciliationService := reportapp.NewReconciliationService(purchaseRepo, invoiceRepo, mappingService, log)
	healthService := reportapp.NewSyncHealthService(fetchRecordRepo, orderRepo, invoiceRepo, stockItemRepo, itemRepo, log)

	// Pipeline metrics: fetch outcomes, ingestion counters, backlog gauges
	if meterProvider.IsEnabled() {
		syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:         meterProvider.Meter("stocksync-sync"),
			Logger:        log,
			StaleItemAge:  cfg.Sync.StaleItemAge,
			GaugeProvider: telemetry.NewGormSyncGaugeProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to create sync metrics", zap.Error(err))
		} else {
			syncService.SetMetrics(syncMetrics)
			healthService.SetMetrics(syncMetrics)
			syncMetrics.StartPeriodicCollection(rootCtx, 0, cfg.Sync.StaleItemAge)
			defer syncMetrics.Stop()
		}
	}

	// Authentication services
	jwtService := auth.NewJWTService(cfg.Auth)
	adminVerifier := auth.NewAdminKeyVerifier(cfg.Auth.AdminKeyHash)
	if !adminVerifier.Enabled() {
		log.Warn("Admin key not configured; deletion approval and hard mapping deletes are unavailable")
	}

	// Background fetch scheduling and fetch history retention
	if cfg.Scheduler.Enabled {
		syncScheduler, err := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
			Enabled:        true,
			VendorInterval: cfg.Scheduler.VendorInterval,
			RetailInterval: cfg.Scheduler.RetailInterval,
		}, syncService, domainsync.AllSources(), log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(rootCtx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Warn("Sync scheduler stop failed", zap.Error(err))
			}
		}()

		retentionWorker, err := scheduler.NewRetentionWorker(scheduler.RetentionWorkerConfig{
			Enabled:   true,
			Retention: time.Duration(cfg.Scheduler.RetentionDays) * 24 * time.Hour,
			Interval:  cfg.Scheduler.RetentionInterval,
		}, syncService, log)
		if err != nil {
			log.Fatal("Failed to create retention worker", zap.Error(err))
		}
		if err := retentionWorker.Start(rootCtx); err != nil {
			log.Fatal("Failed to start retention worker", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := retentionWorker.Stop(stopCtx); err != nil {
				log.Warn("Retention worker stop failed", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	syncHandler := handler.NewSyncHandler(syncService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService)
	mappingHandler := handler.NewMappingHandler(mappingService)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationService)
	syncHealthHandler := handler.NewHealthHandler(healthService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Telemetry - request tracing, HTTP metrics, profiling labels (if enabled)
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, "/health", "/api/v1/system/ping"))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// HTTP telemetry
	if tracerProvider.IsEnabled() {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.App.Name,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.App.Name,
		Enabled:       meterProvider.IsEnabled(),
	}))
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Stricter per-IP budget for routes that accept the admin key header
	var adminRateLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		adminRateLimit = middleware.AuthRateLimit(authLimiter)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, cacheFactory))

	// Swagger documentation endpoint
	swaggerJWT := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		Logger:     log,
	})
	swaggerProtection, err := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, swaggerJWT)
	if err != nil {
		log.Fatal("Invalid swagger access configuration", zap.Error(err))
	}
	engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	var tokenBlacklist auth.TokenBlacklist
	if redisClient := cacheFactory.Client(); redisClient != nil {
		tokenBlacklist = auth.NewRedisTokenBlacklistWithClient(redisClient)
	}
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Register domain route groups

	// Sync domain (fetch triggering, fetch history, pipeline health)
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/:source", syncHandler.Trigger)
	syncRoutes.GET("/history", syncHandler.History)
	syncRoutes.GET("/history/:id", syncHandler.GetRecord)
	syncRoutes.GET("/health", syncHealthHandler.GetSyncHealth)

	// Inventory domain (stock levels, item detail, manual adjustments)
	inventoryRoutes := router.NewDomainGroup("inventory", "/inventory")
	inventoryRoutes.GET("/items", inventoryHandler.List)
	inventoryRoutes.GET("/items/sku/:sku", inventoryHandler.GetBySKU)
	inventoryRoutes.GET("/items/:id", inventoryHandler.GetDetail)
	inventoryRoutes.POST("/items/:id/adjust", inventoryHandler.AdjustStock)

	// Purchase domain (ledger entries and two-phase deletion)
	purchaseRoutes := router.NewDomainGroup("purchase", "/purchases")
	purchaseRoutes.POST("", purchaseHandler.Create)
	purchaseRoutes.GET("", purchaseHandler.List)
	purchaseRoutes.GET("/:id", purchaseHandler.Get)
	purchaseRoutes.PUT("/:id", purchaseHandler.Update)
	purchaseRoutes.POST("/:id/delete-request", purchaseHandler.RequestDeletion)
	purchaseRoutes.POST("/:id/approve", adminRateLimit, middleware.RequireAdmin(adminVerifier), purchaseHandler.ApproveDeletion)
	purchaseRoutes.POST("/:id/reject", adminRateLimit, middleware.RequireAdmin(adminVerifier), purchaseHandler.RejectDeletion)

	// Item alias domain (canonicalization mappings and suggestions).
	// ResolveAdmin only records admin status; the delete handler decides
	// whether the request needs it.
	mappingRoutes := router.NewDomainGroup("mapping", "/item-alias")
	mappingRoutes.POST("/mapping", mappingHandler.Upsert)
	mappingRoutes.GET("/mapping/:canonical", mappingHandler.Get)
	mappingRoutes.PUT("/mapping/:canonical", mappingHandler.Replace)
	mappingRoutes.DELETE("/mapping/:canonical", adminRateLimit, middleware.ResolveAdmin(adminVerifier), mappingHandler.Delete)
	mappingRoutes.GET("/mappings", mappingHandler.List)
	mappingRoutes.GET("/suggestions", mappingHandler.Suggestions)

	// Reconciliation report
	reconciliationRoutes := router.NewDomainGroup("reconciliation", "/reconciliation")
	reconciliationRoutes.GET("", reconciliationHandler.GetReport)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(syncRoutes).
		Register(inventoryRoutes).
		Register(purchaseRoutes).
		Register(mappingRoutes).
		Register(reconciliationRoutes).
		Register(systemRoutes)

	r.Setup()

	// Simple ping endpoint for health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints. Redis being
// down only degrades the answer; the sync caches fall back to in-memory
// implementations.
func healthHandler(db *persistence.Database, cacheFactory *cache.SyncCacheFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}

		cacheStatus := "ok"
		if client := cacheFactory.Client(); client == nil {
			cacheStatus = "degraded"
		} else if err := client.Ping(c.Request.Context()).Err(); err != nil {
			reqLog.Warn("Redis health check failed", zap.Error(err))
			cacheStatus = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
			"cache":    cacheStatus,
		})
	}
}
