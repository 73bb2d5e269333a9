package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/grocery/backend/internal/application/catalog"
	identityapp "github.com/grocery/backend/internal/application/identity"
	partnerapp "github.com/grocery/backend/internal/application/partner"
	reportapp "github.com/grocery/backend/internal/application/report"
	tradeapp "github.com/grocery/backend/internal/application/trade"
	"github.com/grocery/backend/internal/infrastructure/auth"
	"github.com/grocery/backend/internal/infrastructure/cache"
	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/grocery/backend/internal/infrastructure/event"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/infrastructure/openfoodfacts"
	"github.com/grocery/backend/internal/infrastructure/persistence"
	"github.com/grocery/backend/internal/infrastructure/printing"
	"github.com/grocery/backend/internal/infrastructure/storage"
	"github.com/grocery/backend/internal/infrastructure/telemetry"
	"github.com/grocery/backend/internal/interfaces/http/handler"
	"github.com/grocery/backend/internal/interfaces/http/middleware"
	"github.com/grocery/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/grocery/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Grocery Backend API
//	@version		1.0
//	@description	Products, customers and invoices for a grocery store, with Open Food Facts nutrition data.

//	@contact.name	API Support
//	@contact.url	https://github.com/grocery/backend

//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT

//	@host		localhost:8000
//	@BasePath	/api

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const dashboardCacheTTL = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Fields: map[string]string{
			"service": cfg.Telemetry.ServiceName,
			"env":     cfg.App.Env,
		},
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OTEL log export wraps the base logger so every entry also reaches the collector
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Grocery Backend",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(cfg.Profiler, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiler.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			baseLog.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Database
	sqlLog := logger.NewSQLLogger(log, logger.SQLLogConfig{
		Level:         logger.ParseSQLLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		FullSQL:       cfg.Telemetry.DBLogFullSQL,
	})
	db, err := persistence.Open(ctx, &cfg.Database, sqlLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracing(cfg.Telemetry, "postgresql", log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// without Redis every shared store below falls back to process memory
	var redisClient *redis.Client
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if cfg.Redis.Host != "" {
		redisClient, err = auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		} else {
			blacklist = auth.NewRedisTokenBlacklist(redisClient)
			defer func() {
				_ = redisClient.Close()
			}()
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	storeOpts := []cache.StoreFactoryOption{cache.WithLogger(log)}
	var stores *cache.StoreFactory
	if redisClient != nil {
		stores = cache.NewStoreFactory(redisClient, storeOpts...)
	} else {
		stores = cache.NewStoreFactory(nil, storeOpts...)
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// External integrations
	offClient := openfoodfacts.NewClient(cfg.OpenFoodFacts,
		openfoodfacts.WithCache(stores.CreateStore(ctx, "off:")),
		openfoodfacts.WithLogger(log.Named("openfoodfacts")),
	)

	var pictures catalogapp.PictureStorage
	if cfg.Storage.Enabled {
		bucket, err := storage.NewPictureBucket(ctx, cfg.Storage, log.Named("storage"))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := bucket.Ensure(ctx); err != nil {
			log.Warn("Could not verify picture bucket", zap.String("bucket", bucket.Name()), zap.Error(err))
		}
		pictures = bucket
	} else {
		log.Info("Object storage disabled, picture uploads unavailable")
	}

	var invoicePrinter *printing.InvoicePrinter
	if cfg.Printing.Enabled {
		renderer := printing.NewChromedpRenderer(&printing.ChromedpConfig{
			DefaultTimeout: cfg.Printing.Timeout,
			ExecPath:       cfg.Printing.ChromePath,
			NoSandbox:      true,
			MaxConcurrent:  cfg.Printing.MaxConcurrent,
			Logger:         log.Named("printing"),
		})
		defer func() {
			_ = renderer.Close()
		}()
		invoicePrinter, err = printing.NewInvoicePrinter(renderer, cfg.Printing, log)
		if err != nil {
			log.Fatal("Failed to initialize invoice printer", zap.Error(err))
		}
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	userService := identityapp.NewUserService(userRepo, blacklist, cfg.JWT.RefreshTokenExpiration, log)
	productService := catalogapp.NewProductService(productRepo, invoiceRepo, offClient, pictures, log)
	customerService := partnerapp.NewCustomerService(customerRepo, log)
	invoiceService := tradeapp.NewInvoiceService(invoiceRepo, productRepo, customerRepo, log)
	if invoicePrinter != nil {
		invoiceService.SetPrinter(invoicePrinter)
	}
	dashboardService := reportapp.NewDashboardService(productRepo, customerRepo, invoiceRepo, log)
	dashboardService.SetCache(stores.CreateStore(ctx, "dashboard:"), dashboardCacheTTL)

	// Domain events feed the business metrics
	eventBus := event.NewInMemoryEventBus(log)
	if meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:  meterProvider.Meter("grocery.business"),
			Logger: log,
			Stats:  productRepo,
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		metricsHandler := telemetry.NewMetricsEventHandler(businessMetrics)
		eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
		businessMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
		defer businessMetrics.Stop()
		log.Info("Business metrics enabled", zap.Strings("events", metricsHandler.EventTypes()))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	userService.SetEventPublisher(eventBus)
	productService.SetEventPublisher(eventBus)
	customerService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Engine-wide middleware, in order:
	// request ID, tracing, metrics, recovery, access log, security headers, CORS, body limit, rate limit
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       tracerProvider.IsEnabled(),
		UntracedPaths: []string{"/health"},
	}))
	engine.Use(middleware.SpanAnnotator())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{MeterProvider: meterProvider}))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		limiter, stop := newLimiter(redisClient, "api", cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer stop()
		engine.Use(middleware.RateLimit(limiter, log))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)

	// the API authenticator skips /swagger, so the docs get their own
	swaggerProtection, err := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, middleware.JWTAuthMiddlewareWithConfig(jwtConfig.WithoutSkips()))
	if err != nil {
		log.Fatal("Invalid swagger configuration", zap.Error(err))
	}
	engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiConfig := router.APIConfig{
		Auth: jwtMiddleware,
		AfterAuth: []gin.HandlerFunc{
			middleware.ProfilingWithConfig(middleware.ProfilingConfig{
				Enabled:          profiler.IsEnabled(),
				SkipPaths:        []string{"/health"},
				SkipPathPrefixes: []string{"/swagger"},
			}),
		},
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter, stop := newLimiter(redisClient, "auth", cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer stop()
		apiConfig.AuthRateLimit = middleware.AuthRateLimit(authLimiter, log)
	}

	router.RegisterAPI(engine, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		User:     handler.NewUserHandler(userService),
		Product:  handler.NewProductHandler(productService),
		Customer: handler.NewCustomerHandler(customerService),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		Report:   handler.NewReportHandler(dashboardService),
		System:   handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, db),
	}, apiConfig)

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newLimiter shares counts through Redis when it is connected.
func newLimiter(client *redis.Client, scope string, limit int, period time.Duration) (middleware.Limiter, func()) {
	if client != nil {
		return middleware.NewRedisLimiter(client, scope, limit, period), func() {}
	}
	l := middleware.NewMemoryLimiter(limit, period)
	return l, l.Stop
}
