package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"santamoment/internal/api"
	"santamoment/internal/config"
	"santamoment/internal/kafka"
	"santamoment/internal/logger"
	"santamoment/internal/notify"
	"santamoment/internal/order"
	"santamoment/internal/order/gateway"
	rediswrap "santamoment/internal/order/redis"
	"santamoment/internal/quality"
	"santamoment/internal/queue"
	"santamoment/internal/store"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Santa Moment order service")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(cfg.Store)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open order store: %v", err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to migrate order store: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Order store ready (%s)", cfg.Store.Driver))

	var locker order.Locker = rediswrap.NoopLocker{}
	if cfg.Redis.LockEnabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
		}
		defer redisClient.Close()
		locker = rediswrap.NewRedis(redisClient, cfg.Redis.LockTTL)
		log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
	} else {
		log.Warn("REDIS", "Order locking disabled, running with in-process noop locker")
	}

	var events order.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.OrderCreated,
			cfg.Kafka.Topics.OrderPaid,
			cfg.Kafka.Topics.OrderCompleted,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
		events = producer
	} else {
		log.Info("KAFKA", "Event publishing disabled")
	}

	stripeGateway, err := gateway.NewStripeGateway(cfg.Payment.StripeSecretKey, log)
	if err != nil {
		log.Fatal("STRIPE", fmt.Sprintf("Failed to initialize payment gateway: %v", err))
	}

	estimator := queue.NewEstimator(cfg.Queue.DefaultAvgMinutes, cfg.Queue.Deadline)
	seedEstimator(ctx, db, estimator, log)

	outbox := notify.NewOutbox(notify.NewEmailSender(cfg.Email, log), log)
	outbox.Start()
	defer outbox.Close()

	orderService := order.NewOrderService(db, stripeGateway, locker, events, outbox, estimator, cfg.Kafka.Topics, log)

	handler := api.NewHandler(orderService, quality.NewAnalyzer(cfg.Quality), cfg, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Santa Moment service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Santa Moment service shutdown complete")
	}
}

// seedEstimator replays completed orders from the store so the wait estimate
// survives restarts.
func seedEstimator(ctx context.Context, db *store.DB, estimator *queue.Estimator, log *logger.Logger) {
	orders, err := db.ListOrders(ctx)
	if err != nil {
		log.Warn("QUEUE", fmt.Sprintf("Could not replay completed orders: %v", err))
		return
	}
	seeded := 0
	for _, o := range orders {
		if !o.PaidAt.IsZero() && !o.CompletedAt.IsZero() {
			estimator.RecordCompletion(o.PaidAt, o.CompletedAt)
			seeded++
		}
	}
	if seeded > 0 {
		log.Info("QUEUE", fmt.Sprintf("Seeded queue estimator with %d completed order(s)", seeded))
	}
}
