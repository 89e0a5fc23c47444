package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	personapp "github.com/erp/personportal/internal/application/person"
	"github.com/erp/personportal/internal/infrastructure/auth"
	"github.com/erp/personportal/internal/infrastructure/cache"
	"github.com/erp/personportal/internal/infrastructure/config"
	"github.com/erp/personportal/internal/infrastructure/export"
	"github.com/erp/personportal/internal/infrastructure/logger"
	"github.com/erp/personportal/internal/infrastructure/personapi"
	"github.com/erp/personportal/internal/infrastructure/storage"
	"github.com/erp/personportal/internal/infrastructure/telemetry"
	"github.com/erp/personportal/internal/interfaces/http/handler"
	"github.com/erp/personportal/internal/interfaces/http/middleware"
	"github.com/erp/personportal/internal/interfaces/http/router"
	"github.com/erp/personportal/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log pipeline first so the zap logger can tee into it
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	})
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Person portal",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)
	logProvider.LogStartup(log)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}

	// Flash messages
	flashStore, err := cache.NewFlashStoreFactory(cfg.Flash, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create flash store", zap.Error(err))
	}

	// Remote Person API
	client := personapi.NewClient(personapi.Config{
		BaseURL:         cfg.Upstream.BaseURL,
		Timeout:         cfg.Upstream.Timeout,
		MaxResponseSize: cfg.Upstream.MaxResponseSize,
	}, log)

	serviceOpts := []personapp.ServiceOption{personapp.WithLogger(log)}
	if cfg.Export.ArchiveEnabled {
		archive, err := storage.NewS3ExportArchive(ctx, &cfg.Storage,
			storage.WithLogger(log),
			storage.WithPrefix(cfg.Export.ArchivePrefix),
		)
		if err != nil {
			log.Fatal("Failed to create export archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Warn("Export archive bucket is not ready", zap.String("bucket", archive.Bucket()), zap.Error(err))
		}
		serviceOpts = append(serviceOpts, personapp.WithArchive(archive))
		log.Info("Export archive enabled", zap.String("bucket", archive.Bucket()))
	}
	personService := personapp.NewService(client, export.NewWorkbookBuilder(), serviceOpts...)

	renderer, err := view.New(view.WithMinify(cfg.View.Minify))
	if err != nil {
		log.Fatal("Failed to parse templates", zap.Error(err))
	}

	personHandler := handler.NewPersonHandler(personService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name)

	// Set Gin mode based on environment
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()
	engine.HTMLRender = renderer

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.IsProduction()

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Server spans, then error marking inside the span
	// 5. Metrics - Request count and latency
	// 6. Security - Add security headers
	// 7. BodyLimit - Limit request body size
	// 8. FlashSession - Flash cookie and store
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       meterProvider.IsEnabled(),
	}))
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.FlashSession(middleware.FlashSessionConfig{
		Store:      flashStore,
		CookieName: cfg.Flash.CookieName,
		Secure:     cfg.App.IsProduction(),
	}))

	engine.GET("/", personHandler.Index)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/static/*filepath", renderer.ServeStatic)

	var tokens *auth.TokenService
	if cfg.Access.Enabled {
		tokens = auth.NewTokenService(cfg.Access)
		log.Info("Access guard enabled", zap.String("login_url", cfg.Access.LoginURL))
	}
	guard := middleware.RequireAccess(middleware.AccessGuardConfig{
		Enabled:    cfg.Access.Enabled,
		Tokens:     tokens,
		CookieName: cfg.Access.CookieName,
		LoginURL:   cfg.Access.LoginURL,
	})

	r := router.NewRouter(engine)
	r.Register(router.PersonRoutes(personHandler, guard))
	r.Setup()

	// Create HTTP server with config
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
	if err := flashStore.Close(); err != nil {
		log.Warn("Error closing flash store", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
