package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digimall/admin-gateway/internal/application/media"
	"github.com/digimall/admin-gateway/internal/application/session"
	"github.com/digimall/admin-gateway/internal/application/setup"
	"github.com/digimall/admin-gateway/internal/infrastructure/auth"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/infrastructure/config"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/infrastructure/storage"
	"github.com/digimall/admin-gateway/internal/infrastructure/telemetry"
	"github.com/digimall/admin-gateway/internal/interfaces/http/handler"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/digimall/admin-gateway/internal/interfaces/http/proxy"
	"github.com/digimall/admin-gateway/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//	@title			digiMall Admin Gateway API
//	@version		1.0
//	@description	Session gateway between the digiMall admin app and the unified backend

//	@BasePath	/api

//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						digimall.session

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	log.Info("Starting admin gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	ctx := context.Background()

	// OpenTelemetry: traces, metrics and logs
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
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
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          logger.ParseLevel(cfg.Log.Level),
		})
		log = telemetry.NewBridgedLogger(logger.NewCore(logCfg), otelCore, logger.Options(logCfg)...)
		log.Info("Log export to OTLP enabled")
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Continuous profiling; span profiles need both the profiler and tracing
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:            cfg.Profiling.Enabled,
		ServerAddress:      cfg.Profiling.ServerAddress,
		ApplicationName:    cfg.Profiling.ApplicationName,
		BasicAuthUser:      cfg.Profiling.BasicAuthUser,
		BasicAuthPassword:  cfg.Profiling.BasicAuthPassword,
		ProfileAllocations: cfg.Profiling.ProfileAllocations,
		ProfileGoroutines:  cfg.Profiling.ProfileGoroutines,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	gatewayMetrics, err := telemetry.NewGatewayMetrics(meterProvider.Meter("admin-gateway"))
	if err != nil {
		log.Fatal("Failed to create gateway metrics", zap.Error(err))
	}

	// Session revocation store: Redis when configured, process memory otherwise
	var (
		revocations auth.RevocationStore
		rdb         *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb, err = auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		revocations = auth.NewRedisRevocationStore(rdb)
		log.Info("Session revocation backed by Redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		revocations = auth.NewInMemoryRevocationStore()
		log.Warn("Redis disabled, session revocation is kept in memory and lost on restart")
	}

	tokens, err := auth.NewSessionTokenService(cfg.Session)
	if err != nil {
		log.Fatal("Failed to create session token service", zap.Error(err))
	}

	backendClient := backend.NewClient(cfg.Backend, cfg.App.Version, log, backend.WithMetrics(gatewayMetrics))

	// Application services
	sessionService := session.NewService(backendClient, tokens, revocations, session.Config{
		MaxAge:        cfg.Session.MaxAge,
		RefreshWindow: cfg.Session.RefreshWindow,
	}, log, session.WithMetrics(gatewayMetrics))

	setupService := setup.NewService(backendClient, setup.Config{
		Enabled: cfg.Setup.Enabled,
		Token:   cfg.Setup.Token,
	}, log)

	healthChecks := make(map[string]handler.Pinger)
	if rdb != nil {
		healthChecks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	mediaOpts := []media.Option{media.WithMetrics(gatewayMetrics)}
	if cfg.Media.Mode == media.ModeS3 {
		store, err := storage.NewS3Store(ctx, &cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to create object storage client", zap.Error(err))
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare media bucket", zap.String("bucket", store.Bucket()), zap.Error(err))
		}
		mediaOpts = append(mediaOpts, media.WithStore(store))
		healthChecks["storage"] = store
	}
	mediaService := media.NewService(backendClient, media.Config{
		Mode:             cfg.Media.Mode,
		MaxUploadSize:    cfg.Media.MaxUploadSize,
		AllowedMIMETypes: cfg.Media.AllowedMIMETypes,
		DefaultFolder:    cfg.Media.DefaultFolder,
	}, log, mediaOpts...)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	// Limiter buckets are swept until shutdown
	limiterCtx, stopLimiters := context.WithCancel(ctx)
	defer stopLimiters()

	var globalLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		globalLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		globalLimiter.StartCleanup(limiterCtx, cfg.HTTP.RateLimitWindow)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	signInLimiter := middleware.NewRateLimiter(cfg.HTTP.SignInRateLimitRequests, cfg.HTTP.SignInRateLimitWindow)
	signInLimiter.StartCleanup(limiterCtx, cfg.HTTP.SignInRateLimitWindow)

	cookie := middleware.NewSessionCookie(cfg.Session, cfg.Cookie)
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()
	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.HSTSEnabled = cfg.Cookie.Secure

	engine, err := router.NewEngine(router.Options{
		Logger:         log,
		Sessions:       sessionService,
		Cookie:         cookie,
		AllowBearer:    true,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS: middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		Security:      securityCfg,
		Tracing:       tracingCfg,
		Metrics:       middleware.HTTPMetricsConfig{MeterProvider: meterProvider, Enabled: meterProvider.IsEnabled()},
		Profiling:     profilingCfg,
		MaxBodySize:   cfg.HTTP.MaxBodySize,
		RateLimiter:   globalLimiter,
		SignInLimiter: signInLimiter,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(sessionService, cookie),
		Setup:      handler.NewSetupHandler(setupService),
		Media:      handler.NewMediaHandler(mediaService),
		Diagnostic: handler.NewDiagnosticHandler(backendClient, handler.DefaultProbeTimeout),
		System:     handler.NewSystemHandler(cfg.App.Name, cfg.App.Version),
		Health:     handler.NewHealthHandler(healthChecks, 0),
		Proxy:      proxy.NewHandler(backendClient, log),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	// WriteTimeout must outlast the proxy deadline or streamed responses are cut
	writeTimeout := cfg.HTTP.WriteTimeout
	if minWrite := cfg.MinWriteTimeout(); writeTimeout > 0 && writeTimeout < minWrite {
		log.Warn("http.write_timeout is shorter than the backend timeout, raising it",
			zap.Duration("configured", writeTimeout),
			zap.Duration("effective", minWrite),
		)
		writeTimeout = minWrite
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   writeTimeout,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stopLimiters()

	// Flush telemetry after the last request has been served
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
