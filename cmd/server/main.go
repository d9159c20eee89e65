package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tunely/config"
	"tunely/internal/api"
	"tunely/internal/auth"
	"tunely/internal/broker"
	"tunely/internal/processor"
	"tunely/internal/redisclient"
	"tunely/internal/service"
	"tunely/internal/store"
	"tunely/internal/util"
	"tunely/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting tunely payments service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTips)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicTips))

	stripeClient := processor.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	claimTTL := time.Duration(cfg.Business.WebhookClaimTTLSeconds) * time.Second
	queueTTL := time.Duration(cfg.Business.QueueCacheTTLSeconds) * time.Second

	tipService := service.NewTipService(db, stripeClient)
	webhookProcessor := service.NewWebhookProcessor(db, stripeClient, redisClient, eventPublisher, claimTTL)
	artistService := service.NewArtistService(db, stripeClient, redisClient)
	sessionService := service.NewSessionService(db, redisClient, eventPublisher, queueTTL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	queueConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTips, cfg.Kafka.ConsumerGroup)
	queueWorker := worker.NewQueueWorker(queueConsumer, sessionService)
	go func() {
		if err := queueWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Queue worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(api.Options{
		Tips:          tipService,
		Webhooks:      webhookProcessor,
		Artists:       artistService,
		Sessions:      sessionService,
		Authenticator: verifier,
		Checks: map[string]api.ReadinessCheck{
			"postgres": db.Ping,
			"redis":    redisClient.Ping,
		},
		PublicURL:      cfg.Server.PublicURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := queueWorker.Stop(); err != nil {
		logger.Error("Error stopping queue worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
