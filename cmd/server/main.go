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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appbilling "github.com/communal/backend/internal/application/billing"
	apphousing "github.com/communal/backend/internal/application/housing"
	"github.com/communal/backend/internal/infrastructure/cache"
	"github.com/communal/backend/internal/infrastructure/config"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/infrastructure/persistence"
	"github.com/communal/backend/internal/infrastructure/scheduler"
	"github.com/communal/backend/internal/infrastructure/telemetry"
	"github.com/communal/backend/internal/interfaces/http/handler"
	"github.com/communal/backend/internal/interfaces/http/middleware"
	"github.com/communal/backend/internal/interfaces/http/router"
)

//	@title			Communal Billing API
//	@version		1.0
//	@description	Houses, apartments, meters, tariffs and monthly utility bills
//	@BasePath		/api/v1

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// lifecycle is a background component started with the server
type lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Bootstrap logger for telemetry setup, replaced once the log bridge exists
	bootLog, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting communal billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Database.SlowThreshold,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Job store and advisory lock
	cacheBackend, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create()
	if err != nil {
		log.Fatal("Failed to initialize job store", zap.Error(err))
	}
	defer func() {
		if err := cacheBackend.Close(); err != nil {
			log.Error("Error closing job store", zap.Error(err))
		}
	}()

	// Prometheus registry served on /metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedulerMetrics, err := scheduler.NewMetrics(registry)
	if err != nil {
		log.Fatal("Failed to register scheduler metrics", zap.Error(err))
	}
	httpMetrics, err := middleware.NewHTTPMetrics(registry)
	if err != nil {
		log.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}
	billingMetrics, err := telemetry.NewBillingMetrics(meterProvider.Meter("communal/billing"))
	if err != nil {
		log.Fatal("Failed to create billing metrics", zap.Error(err))
	}

	// Repositories
	houseRepo := persistence.NewGormHouseRepository(db.DB)
	apartmentRepo := persistence.NewGormApartmentRepository(db.DB)
	meterRepo := persistence.NewGormMeterRepository(db.DB)
	meterTypeRepo := persistence.NewGormMeterTypeRepository(db.DB)
	tariffRepo := persistence.NewGormTariffRepository(db.DB)
	billRepo := persistence.NewGormUtilityBillRepository(db.DB)
	progressRepo := persistence.NewGormProgressRepository(db.DB)

	// Application services
	billingService := appbilling.NewBillingService(
		persistence.NewGormTransactionScope(db.DB),
		cacheBackend.Locker,
		billingMetrics,
		appbilling.BillingServiceConfig{Lookback: cfg.Billing.Lookback, LockTTL: cfg.Billing.LockTTL},
		log,
	)
	jobExecutor := appbilling.NewJobExecutor(billingService, progressRepo, cacheBackend.Results,
		appbilling.JobExecutorConfig{Heartbeat: cfg.Billing.Heartbeat, ResultTTL: cfg.Billing.ResultTTL}, log)

	workerPool, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		QueueSize:         cfg.Scheduler.QueueSize,
		JobTimeout:        cfg.Scheduler.JobTimeout,
	}, jobExecutor, log, scheduler.WithMetrics(schedulerMetrics))
	if err != nil {
		log.Fatal("Failed to create worker pool", zap.Error(err))
	}

	jobService := appbilling.NewJobService(houseRepo, progressRepo, cacheBackend.Results, workerPool,
		appbilling.JobServiceConfig{MaxDelay: cfg.Billing.MaxDelay, ResultTTL: cfg.Billing.ResultTTL}, log)
	housingService := apphousing.NewHousingService(houseRepo, apartmentRepo, meterRepo, meterTypeRepo, log)
	tariffService := apphousing.NewTariffService(tariffRepo, meterTypeRepo)
	billQueryService := apphousing.NewBillQueryService(houseRepo, apartmentRepo, billRepo)

	reaper, err := scheduler.NewProgressReaper(scheduler.ProgressReaperConfig{
		Interval:   cfg.Billing.ReaperInterval,
		StaleAfter: cfg.Billing.StaleAfter,
	}, progressRepo, log, schedulerMetrics)
	if err != nil {
		log.Fatal("Failed to create progress reaper", zap.Error(err))
	}

	// Stopped in reverse order, so the pool drains after the producers stop
	background := []lifecycle{workerPool, reaper}
	if cfg.Billing.MonthlyEnabled {
		triggerConfig := scheduler.DefaultMonthlyTriggerConfig()
		triggerConfig.Day = cfg.Billing.MonthlyDay
		triggerConfig.Hour = cfg.Billing.MonthlyHour
		triggerConfig.Minute = cfg.Billing.MonthlyMinute
		trigger, err := scheduler.NewMonthlyBillingTrigger(triggerConfig, jobService, houseRepo, log, schedulerMetrics)
		if err != nil {
			log.Fatal("Failed to create monthly billing trigger", zap.Error(err))
		}
		background = append(background, trigger)
	}
	for _, c := range background {
		if err := c.Start(ctx); err != nil {
			log.Fatal("Failed to start background component", zap.Error(err))
		}
	}
	log.Info("Worker pool started",
		zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
		zap.Int("queue_size", cfg.Scheduler.QueueSize),
		zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		zap.Bool("monthly_trigger", cfg.Billing.MonthlyEnabled),
		zap.Bool("distributed_lock", cacheBackend.Distributed),
	)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	tracingConfig := middleware.DefaultTracingConfig()
	tracingConfig.ServiceName = cfg.Telemetry.ServiceName
	tracingConfig.Enabled = tracerProvider.IsEnabled()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(tracingConfig),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.Metrics(httpMetrics),
	)

	systemHandler := handler.NewSystemHandler(db, cacheBackend, version)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/info", systemHandler.Info)
	if cfg.Telemetry.PrometheusEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	var submitGuard []gin.HandlerFunc
	if cfg.HTTP.SubmitRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.SubmitRateLimit, cfg.HTTP.SubmitBurst, 10*time.Minute)
		submitGuard = append(submitGuard, middleware.RateLimit(limiter))
		log.Info("Billing job submissions rate limited",
			zap.Float64("per_second", cfg.HTTP.SubmitRateLimit),
			zap.Int("burst", cfg.HTTP.SubmitBurst),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.APIGroups(router.Handlers{
		House:     handler.NewHouseHandler(housingService),
		Apartment: handler.NewApartmentHandler(housingService, billQueryService),
		Meter:     handler.NewMeterHandler(housingService),
		Tariff:    handler.NewTariffHandler(tariffService),
		Billing:   handler.NewBillingHandler(jobService, billingService),
		Statement: handler.NewStatementHandler(billQueryService),
	}, submitGuard...)...)
	r.Setup()

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for i := len(background) - 1; i >= 0; i-- {
		if err := background[i].Stop(shutdownCtx); err != nil {
			log.Error("Error stopping background component", zap.Error(err))
		}
	}
	// Logs last so shutdown errors of the others are still exported
	for _, p := range []struct {
		name     string
		shutdown func(context.Context) error
	}{
		{"tracer", tracerProvider.Shutdown},
		{"meter", meterProvider.Shutdown},
		{"logs", logProvider.Shutdown},
	} {
		if err := p.shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry provider", zap.String("provider", p.name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
