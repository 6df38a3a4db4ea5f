// cmd/dispatcher/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"notification-dispatcher/internal/api"
	"notification-dispatcher/internal/common/aws"
	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/database"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/observability"
	"notification-dispatcher/internal/common/queue"
	"notification-dispatcher/internal/delivery"
	"notification-dispatcher/internal/delivery/email"
	"notification-dispatcher/internal/delivery/push"
	"notification-dispatcher/internal/dispatch"
	"notification-dispatcher/internal/ingestion"
	"notification-dispatcher/internal/realtime"
	"notification-dispatcher/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification dispatcher...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, cfg.Observability.SampleRatio)
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}
	if tracing != nil {
		obs.AttachTracing(tracing)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := database.Migrate(pg.DB); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Database migrations applied")
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var indexer *store.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = store.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Stores ---
	baseStore := store.New(pg.DB)
	cachedStore := store.NewCachedStore(baseStore, rdb.Client, config.GetDuration(cfg.Database.Redis.CacheTTL), log)

	// --- Senders ---
	breakerSettings := delivery.BreakerSettingsFromConfig(cfg.Breaker)

	emailSender, err := email.NewFromConfig(ctx, cfg.Email, log)
	if err != nil {
		zapLog.Fatal("failed to create email sender", zap.Error(err))
	}
	var emailOut dispatch.EmailSender = delivery.NewBreakerEmailSender(emailSender, breakerSettings, log)

	var pushOut dispatch.PushSender
	if cfg.Push.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Push.Region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		snsSender := push.NewSNSSender(snsClient, rdb.Client, push.SNSConfig{
			PlatformApplicationARN: cfg.Push.PlatformApplicationARN,
			EndpointCacheTTL:       config.GetDuration(cfg.Push.EndpointCacheTTL),
		}, log)
		pushOut = delivery.NewBreakerPushSender(snsSender, breakerSettings, log)
		zapLog.Info("SNS push sender configured")
	} else {
		zapLog.Warn("push delivery disabled; offline push notifications will be retried and fail")
	}

	// --- Realtime hub ---
	hub := realtime.NewHub(config.GetDuration(cfg.Realtime.WriteTimeout), log)
	go hub.Heartbeat(ctx, config.GetDuration(cfg.Realtime.HeartbeatInterval))
	wsHandler := realtime.NewHandler(hub, realtime.HandlerConfig{
		ReadLimit:      cfg.Realtime.ReadLimit,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, log)

	// --- Dispatch pipeline ---
	dispatchCfg := dispatch.ConfigFromApp(cfg)
	router := dispatch.NewRouter(hub, emailOut, pushOut, dispatchCfg.SendTimeout, log)

	orchOpts := []dispatch.Option{
		dispatch.WithTracer(observability.Tracer("notification-dispatcher/dispatch")),
	}
	if indexer != nil {
		orchOpts = append(orchOpts, dispatch.WithIndexer(indexer))
	}
	orchestrator := dispatch.NewOrchestrator(cachedStore, router, dispatchCfg, log, orchOpts...)

	handler := ingestion.NewHandler(ingestion.NewNormalizer(cfg.App.FrontendURL), orchestrator, obs, log)
	consumer := queue.NewConsumer(cfg.RabbitMQ, queue.Topology{
		Exchange:    cfg.RabbitMQ.Exchange,
		Queue:       cfg.RabbitMQ.Queue,
		RoutingKeys: ingestion.RoutingKeys(),
	}, log, queue.WithHandlerTimeout(config.GetDuration(cfg.HTTP.ShutdownTimeout)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx, handler); err != nil {
			zapLog.Error("queue consumer stopped", zap.Error(err))
		}
	}()
	zapLog.Info("Queue consumer started",
		zap.String("exchange", cfg.RabbitMQ.Exchange),
		zap.String("queue", cfg.RabbitMQ.Queue),
		zap.Int("workers", cfg.RabbitMQ.Workers),
	)

	// --- HTTP server: admin API, realtime, health & metrics ---
	apiOpts := api.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Checks: map[string]api.ReadinessCheck{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		},
		Mount: func(r chi.Router) {
			r.Get("/ws/notifications", wsHandler.ServeNotifications)
			r.Get("/ws/stats", wsHandler.ServeStats)
			r.Post("/ws/broadcast", wsHandler.ServeBroadcast)
		},
	}
	if indexer != nil {
		apiOpts.Searcher = indexer
	}
	server := api.NewServer(cachedStore, orchestrator, apiOpts, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping dispatcher...")
	// Consumer stops taking deliveries; in-flight events finish before Run returns.
	stop()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	hub.Close()
	if tracing != nil {
		tracing.Shutdown(shutdownCtx)
	}

	zapLog.Info("Notification dispatcher stopped gracefully")
}
