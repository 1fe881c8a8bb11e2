package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/ratewatch/ratewatch/internal/api"
	"github.com/ratewatch/ratewatch/internal/api/handlers"
	"github.com/ratewatch/ratewatch/internal/cache"
	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/database"
	"github.com/ratewatch/ratewatch/internal/ecos"
	"github.com/ratewatch/ratewatch/internal/fred"
	"github.com/ratewatch/ratewatch/internal/groq"
	"github.com/ratewatch/ratewatch/internal/logging"
	"github.com/ratewatch/ratewatch/internal/middleware"
	"github.com/ratewatch/ratewatch/internal/services"
	"github.com/ratewatch/ratewatch/internal/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceVersion = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize telemetry first
	if err := telemetry.Init(telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
	}); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetry.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown telemetry: %v\n", err)
		}
	}()

	// The database layer logs through the global logrus logger.
	logrus.SetLevel(logging.ParseLogrusLevel(cfg.LogLevel))

	appLogger := logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
	logger := appLogger.WithService("ratewatch")

	// Database and Redis are opt-in: without a configured host the
	// service still answers from the upstream providers, just without
	// caching or the snapshot fallback.
	var repo *database.RateRepository
	var db *database.PostgresDB
	if cfg.Database.Host != "" {
		db, err = database.NewPostgresConnection(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		repo = database.NewRateRepository(db.Pool)
	} else {
		logger.Warn("database not configured, snapshot fallback disabled")
	}

	var rateCache *cache.RateCache
	var redis *database.RedisClient
	if cfg.Redis.Host != "" {
		redis, err = database.NewRedisConnection(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redis.Close()
		rateCache = cache.NewRateCache(redis.Client)
	} else {
		logger.Warn("redis not configured, response caching disabled")
	}

	// Upstream clients
	fredClient := fred.NewClient(&cfg.FRED)
	ecosClient := ecos.NewClient(&cfg.ECOS)
	groqClient := groq.NewClient(&cfg.Groq)
	if !fredClient.Configured() {
		logger.Warn("FRED API key missing, US rates unavailable")
	}
	if !ecosClient.Configured() {
		logger.Warn("ECOS API key missing, KR rates unavailable")
	}

	// Services
	var store services.SnapshotStore
	if repo != nil {
		store = repo
	}
	var payloadCache services.PayloadCache
	if rateCache != nil {
		payloadCache = rateCache
	}
	rateService := services.NewRateService(fredClient, ecosClient, store, payloadCache,
		logger, cfg.RateData)
	newsService := services.NewNewsService(cfg.News, payloadCache, logger)
	analysisService := services.NewAnalysisService(groqClient, newsService, payloadCache,
		logger, cfg.RateData, cfg.Groq)
	chatService := services.NewChatService(groqClient, rateService, newsService, logger, cfg.Groq)
	forecastService := services.NewForecastService(cfg.Forecast.Path)

	ctx := context.Background()

	perfMonitor := services.NewPerformanceMonitor(appLogger, 5*time.Minute)
	perfMonitor.Start(ctx)
	defer perfMonitor.Stop()

	// Regime flip alerts over Telegram
	if cfg.Monitor.Enabled && cfg.Telegram.BotToken != "" {
		tgBot, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error("failed to initialize telegram bot", "error", err)
		} else {
			interval, err := time.ParseDuration(cfg.Monitor.Interval)
			if err != nil {
				interval = time.Hour
			}
			monitor, err := services.NewRegimeMonitor(rateService, tgBot, cfg.Telegram,
				cfg.Correlation.Window, interval, logger)
			if err != nil {
				logger.Error("failed to initialize regime monitor", "error", err)
			} else {
				monitor.Start(ctx)
				defer monitor.Stop()
			}
		}
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	var dbCheck, redisCheck handlers.HealthChecker
	if db != nil {
		dbCheck = db
	}
	if redis != nil {
		redisCheck = redis
	}
	var cacheAdmin handlers.CacheAdmin
	if rateCache != nil {
		cacheAdmin = rateCache
	}

	api.SetupRoutes(router, api.Handlers{
		Health:      handlers.NewHealthHandler(dbCheck, redisCheck, perfMonitor, serviceVersion),
		Rates:       handlers.NewRatesHandler(rateService),
		Correlation: handlers.NewCorrelationHandler(rateService, cfg.Correlation.Window),
		Analysis:    handlers.NewAnalysisHandler(rateService, analysisService, cfg.Correlation.Window),
		News:        handlers.NewNewsHandler(newsService),
		Forecast:    handlers.NewForecastHandler(forecastService),
		Chat:        handlers.NewChatHandler(chatService),
		Cache:       handlers.NewCacheHandler(cacheAdmin),
	}, middleware.NewAdminMiddleware())

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.LogStartup("ratewatch", serviceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	appLogger.LogShutdown("ratewatch", "signal received")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited gracefully")
	return nil
}
