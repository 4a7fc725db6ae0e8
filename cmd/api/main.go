// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/app"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/infrastructure/messaging/kafka"
	"github.com/your-org/storefront/internal/interfaces/http"
	"github.com/your-org/storefront/internal/pkg/email"
	"github.com/your-org/storefront/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg)
	logr.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting storefront API")

	db, err := postgres.NewConnection(cfg, logr)
	if err != nil {
		logr.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, logr)
	if err != nil {
		logr.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB(), logr)
	if err := migration.RunAutoMigrations(); err != nil {
		logr.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		logr.WithError(err).Warn("Index creation failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			logr.WithError(err).Warn("Data seeding failed")
		}
		if counts, err := migration.TableCounts(); err == nil {
			logr.WithField("tables", counts).Debug("Table row counts")
		}
	}

	opts := []order.Option{
		order.WithNotifier(email.NewOrderNotifier(email.NewEmailService(cfg, logr))),
		order.WithIdempotency(redis.NewIdempotencyStore(redisClient.Cmdable(), cfg.Store.IdempotencyTTL)),
	}

	var producer *kafka.Producer
	if cfg.KafkaEnabled() {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.BufferSize, logr)
		producer.Start()
		opts = append(opts, order.WithPublisher(kafka.NewOrderEventPublisher(producer, cfg.Kafka.Producer)))
		logr.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.OrderTopic,
		}).Info("Kafka order events enabled")
	}

	services := app.NewServices(cfg, db.GetDB(), logr, opts...)
	server := http.NewServer(cfg, logr, db.GetDB(), redisClient.Cmdable(), services.Handlers(logr))

	go func() {
		if err := server.Start(); err != nil {
			logr.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logr.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	// emails and events queued by requests that already finished
	services.Orders.Wait()
	if producer != nil {
		producer.Close()
	}

	logr.Info("Shutdown completed")
}
