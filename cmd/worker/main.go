package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zllovesuki/customers/broker"
	"github.com/zllovesuki/customers/config"
	"github.com/zllovesuki/customers/logging"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	// Load configurations from .env when present
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Cannot load configuration: %v\n", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.SentryDSN, "worker")
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))
	defer logger.Sync()
	defer sentry.Flush(time.Second * 2)

	if cfg.AMQPURI == "" {
		logger.Fatal("AMQP_URI is required")
	}

	amqpBroker, err := broker.NewAMQPBroker(cfg.AMQPURI)
	if err != nil {
		logger.Fatal("Cannot connect to Broker",
			zap.Error(err),
		)
	}
	defer amqpBroker.Close()

	queue := cfg.EventQueue

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	events, err := amqpBroker.ReceiveCustomerEvents(ctx, queue)
	if err != nil {
		logger.Fatal("Cannot get message channel",
			zap.Error(err),
		)
	}

	logger.Info("Consuming customer events",
		zap.String("Queue", queue),
	)

	for e := range events {
		fields := []zap.Field{
			zap.String("EventID", e.ID),
			zap.String("EventType", string(e.Type)),
			zap.Int("CustomerID", e.CustomerID),
			zap.Time("OccurredAt", e.OccurredAt),
		}
		if e.Customer != nil {
			fields = append(fields,
				zap.String("Name", e.Customer.Name),
				zap.String("Segment", e.Customer.Segment),
			)
		}
		logger.Info("Customer changed", fields...)
	}

	logger.Info("Stopped consuming customer events")
}
