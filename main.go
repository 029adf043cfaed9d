package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	"ms-registration/internal/analytics"
	analytics_api "ms-registration/internal/analytics/api"
	"ms-registration/internal/catalog"
	"ms-registration/internal/catalog/catalog_api"
	catalogdb "ms-registration/internal/catalog/db"
	"ms-registration/internal/config"
	"ms-registration/internal/database"
	"ms-registration/internal/database/migrations"
	"ms-registration/internal/kafka"
	"ms-registration/internal/logger"
	"ms-registration/internal/registration/badge"
	regdb "ms-registration/internal/registration/db"
	"ms-registration/internal/registration/metrics"
	rediswrap "ms-registration/internal/registration/redis"
	"ms-registration/internal/registration/registration_api"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/sse"
	"ms-registration/internal/utils"
)

func prepareSchema(ctx context.Context, bunDB *bun.DB, cfg *config.Config, logger *logger.Logger) {
	if !cfg.Migrations.Auto {
		logger.Info("DATABASE", "AUTO_MIGRATE disabled, skipping schema setup")
		return
	}

	if !database.IsPostgres(bunDB) {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
		}
		logger.Info("DATABASE", "SQLite schema ready")
		return
	}

	runner := migrations.NewRunner(bunDB, cfg.Migrations, logger)
	if err := runner.Up(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("REDIS", "REDIS_ADDR not set, running without event lock and stats cache")
		return nil
	}

	client, err := rediswrap.NewClient(ctx, cfg.Addr, logger)
	if err != nil {
		if cfg.EventLock {
			logger.Fatal("REDIS", fmt.Sprintf("Redis is required for REDIS_EVENT_LOCK: %v", err))
		}
		logger.Warn("REDIS", fmt.Sprintf("Redis unavailable, stats cache disabled: %v", err))
		return nil
	}
	return client
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}

	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Registration Service initialization")
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	prepareSchema(ctx, bunDB, cfg, logger)

	redisClient := connectRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	feed := sse.NewRegistrationFeed()
	ledger := service.NewLedgerService(regdb.New(bunDB), cfg.Ledger, logger)
	ledger.Notifier = feed
	ledger.Metrics = metrics.New()
	if redisClient != nil && cfg.Redis.EventLock {
		ledger.Lock = rediswrap.NewEventLock(redisClient, cfg.Redis, logger)
		logger.Info("REDIS", fmt.Sprintf("Event lock enabled (ttl %s, wait %s)", cfg.Redis.LockTTL, cfg.Redis.LockWait))
	}

	var statsCache *analytics.StatsCache
	if redisClient != nil {
		statsCache = analytics.NewStatsCache(redisClient, cfg.Redis.StatsCacheTTL)
	}
	analyticsService := analytics.NewService(analytics.NewDB(bunDB), statsCache, logger)
	catalogService := catalog.NewService(catalogdb.New(bunDB), logger)

	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, logger)
		defer producer.Close()
		ledger.Events = producer
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EventUpserted, cfg.Kafka.GroupID, logger)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx, catalogService.HandleEventMessage); err != nil {
				logger.Error("KAFKA", fmt.Sprintf("Catalog consumer stopped: %v", err))
			}
		}()
	} else {
		logger.Warn("KAFKA", "KAFKA_ENABLED=false, registration events will not be published")
	}

	registrationHandler := registration_api.NewHandler(ledger, feed, badge.NewGenerator(cfg.Badge.Secret), logger)
	catalogHandler := catalog_api.NewHandler(catalogService, ledger, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))
	r.Use(utils.RequestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Database unavailable", err.Error()))
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	})
	r.Handle("/metrics", promhttp.Handler())

	analyticsHandler.RegisterRoutes(r)
	registrationHandler.RegisterRoutes(r)
	catalogHandler.RegisterRoutes(r)
	logger.Info("ROUTER", "Registration, catalog and analytics routes registered under /api")

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		// No WriteTimeout: SSE streams stay open. Request contexts derive
		// from ctx so cancel() ends them on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Registration Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Registration Service shutdown complete")
	}
}
