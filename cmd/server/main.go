package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/shopsync/backend/internal/application/sync"
	"github.com/shopsync/backend/internal/domain/upstream"
	"github.com/shopsync/backend/internal/infrastructure/cache"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/infrastructure/logger"
	"github.com/shopsync/backend/internal/infrastructure/notification"
	"github.com/shopsync/backend/internal/infrastructure/persistence"
	"github.com/shopsync/backend/internal/infrastructure/shopify"
	"github.com/shopsync/backend/internal/interfaces/http/handler"
	"github.com/shopsync/backend/internal/interfaces/http/middleware"
	"github.com/shopsync/backend/internal/interfaces/http/router"
)

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

	log.Info("Starting ShopSync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

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

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	deadLetterRepo := persistence.NewGormDeadLetterRepository(db.DB)
	integrationRepo := persistence.NewGormMerchantIntegrationRepository(db.DB)
	conversationRepo := persistence.NewGormConversationRepository(db.DB)

	// Per-merchant poll lock. Redis keeps concurrent instances from sweeping
	// the same merchant; when Redis is absent the in-memory store still
	// serializes sweeps within this process.
	var lockStore upstream.LockStore
	redisLocks, err := cache.NewRedisLockStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-process poll locks", zap.Error(err))
		lockStore = cache.NewInMemoryLockStore()
	} else {
		lockStore = redisLocks
		defer func() {
			if err := redisLocks.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected successfully")
	}

	// Platform API client
	fetcher, err := shopify.NewClient(shopify.Config{
		APIVersion:       cfg.Shopify.APIVersion,
		RequestTimeout:   cfg.Shopify.RequestTimeout,
		MaxResponseBytes: cfg.Shopify.MaxResponseMB << 20,
	})
	if err != nil {
		log.Fatal("Failed to create platform client", zap.Error(err))
	}

	// Reconciliation pipeline shared by webhooks, polling, and replay
	health := appsync.NewHealth()
	notifier := notification.NewLogDispatcher(log)
	normalizer := appsync.NewNormalizer(conversationRepo, log)
	pipeline := appsync.NewPipeline(normalizer, orderRepo, notifier, log)

	deadLetterWorker, err := appsync.NewDeadLetterWorker(appsync.DeadLetterConfig{
		MaxAttempts:     cfg.DeadLetter.MaxAttempts,
		BackoffDelays:   cfg.DeadLetter.BackoffDelays,
		ProcessInterval: cfg.DeadLetter.ProcessInterval,
	}, deadLetterRepo, pipeline, log)
	if err != nil {
		log.Fatal("Failed to create dead letter worker", zap.Error(err))
	}

	poller, err := appsync.NewPoller(appsync.PollerConfig{
		LockKeyPrefix: "poll-lock:",
		LockTTL:       cfg.Poller.LockTTL,
		Lookback:      cfg.Poller.Lookback,
		MerchantDelay: cfg.Poller.MerchantDelay,
	}, integrationRepo, fetcher, lockStore, orderRepo, pipeline, health, log)
	if err != nil {
		log.Fatal("Failed to create poller", zap.Error(err))
	}

	ingest := appsync.NewWebhookIngest(pipeline, deadLetterWorker, health, log)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if cfg.DeadLetter.Enabled {
		if err := deadLetterWorker.Start(workerCtx); err != nil {
			log.Fatal("Failed to start dead letter worker", zap.Error(err))
		}
		defer deadLetterWorker.Stop()
		log.Info("Dead letter worker started",
			zap.Int("max_attempts", cfg.DeadLetter.MaxAttempts),
			zap.Duration("process_interval", cfg.DeadLetter.ProcessInterval),
		)
	}

	if cfg.Poller.Enabled {
		go runPollLoop(workerCtx, cfg.Poller.Interval, poller, integrationRepo, health, log)
		log.Info("Polling backstop started",
			zap.Duration("interval", cfg.Poller.Interval),
			zap.Duration("lookback", cfg.Poller.Lookback),
		)
	}

	// Initialize HTTP handlers
	webhookHandler := handler.NewWebhookHandler(ingest, integrationRepo, cfg.Webhook.Secret, cfg.Webhook.MaxBodySize, log)
	systemHandler := handler.NewSystemHandler(db, health, poller, deadLetterWorker)
	pollHandler := handler.NewPollHandler(poller)
	orderHandler := handler.NewOrderHandler(orderRepo)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	r.Register(webhookHandler).
		Register(pollHandler).
		Register(orderHandler).
		Register(systemHandler)
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runPollLoop sweeps all verified merchants on a fixed interval. The first
// sweep runs immediately so a fresh deploy reconciles without waiting a full
// interval.
func runPollLoop(
	ctx context.Context,
	interval time.Duration,
	poller *appsync.Poller,
	integrations upstream.MerchantIntegrationRepository,
	health *appsync.Health,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweep(ctx, poller, integrations, health, log)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(
	ctx context.Context,
	poller *appsync.Poller,
	integrations upstream.MerchantIntegrationRepository,
	health *appsync.Health,
	log *zap.Logger,
) {
	merchantIDs, err := integrations.ListVerifiedMerchantIDs(ctx)
	if err != nil {
		log.Error("Failed to list verified merchants for polling", zap.Error(err))
		return
	}

	reports := poller.PollAllMerchants(ctx, merchantIDs)
	health.RecordPoll(time.Now())

	var created, updated, errored int
	for _, r := range reports {
		created += r.OrdersCreated
		updated += r.OrdersUpdated
		if r.Outcome == appsync.PollOutcomeErrorAuth || r.Outcome == appsync.PollOutcomeErrorAPI {
			errored++
		}
	}
	log.Info("Polling sweep finished",
		zap.Int("merchants", len(merchantIDs)),
		zap.Int("orders_created", created),
		zap.Int("orders_updated", updated),
		zap.Int("merchants_errored", errored),
	)
}
