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

	"order-notify/config"
	"order-notify/internal/api"
	"order-notify/internal/broker"
	"order-notify/internal/fcm"
	"order-notify/internal/redisclient"
	"order-notify/internal/service"
	"order-notify/internal/store"
	"order-notify/internal/util"
	"order-notify/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting order-notify service")

	tp, err := util.InitTracer("order-notify", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// Redis only backs the access-token cache; the service runs without it
	var tokenCache fcm.TokenCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("Redis unavailable, minting access tokens per call: %v", err)
		} else {
			defer redisClient.Close()
			tokenCache = redisClient
			log.Println("Redis connected")
		}
	}

	httpTimeout := time.Duration(cfg.Fanout.HTTPTimeoutSeconds) * time.Second

	var pushClient service.PushClient
	creds := fcm.Credentials{
		ClientEmail: cfg.FCM.ClientEmail,
		PrivateKey:  cfg.FCM.PrivateKey,
		ProjectID:   cfg.FCM.ProjectID,
	}
	if creds.Complete() {
		client, err := fcm.NewClient(creds, httpTimeout, tokenCache)
		if err != nil {
			log.Fatalf("Failed to initialize FCM client: %v", err)
		}
		pushClient = client
		log.Println("FCM client initialized")
	} else {
		log.Printf("FCM credentials incomplete, push endpoints will fail: %v", creds.Validate())
	}

	var eventPublisher *broker.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		eventPublisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	bg := worker.NewBackground(30 * time.Second)

	fanoutService := service.NewFanoutService(
		pushClient, db, db, bg,
		time.Duration(cfg.Fanout.SendDelayMillis)*time.Millisecond,
	)
	zipperNotifier := service.NewZipperNotifier(db, fanoutService, bg)
	webhookProcessor := service.NewWebhookProcessor(db, zipperNotifier, eventPublisher, bg)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(webhookProcessor, fanoutService, cfg.Stripe.WebhookSecret, cfg.Server.Env)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := bg.Shutdown(shutdownCtx); err != nil {
		log.Printf("Background tasks did not finish: %v", err)
	}

	log.Println("Server exited")
}
