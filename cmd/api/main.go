package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zllovesuki/customers/broker"
	"github.com/zllovesuki/customers/config"
	"github.com/zllovesuki/customers/customer"
	"github.com/zllovesuki/customers/db"
	"github.com/zllovesuki/customers/logging"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Build-time injected variables
var (
	Version = ""
)

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	provider *db.Provider
}

// setup loads configuration and opens the database handle shared by every subcommand
func setup() (*app, error) {
	// .env is optional, the process environment is authoritative
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Environment, cfg.SentryDSN, "api")
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("Version", Version))

	gdb, err := db.New(logger, cfg.Database)
	if err != nil {
		logger.Error("Cannot connect to database",
			zap.Error(err),
			zap.String("Driver", cfg.Database.Driver),
			zap.String("Host", cfg.Database.Host),
		)
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: db.NewProvider(logger, gdb),
	}, nil
}

func (a *app) close() {
	a.provider.Close()
	sentry.Flush(time.Second * 2)
	a.logger.Sync()
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := customer.NewManager(cmd.Context(), a.logger, a.provider); err != nil {
		a.logger.Error("Cannot bootstrap customers table",
			zap.Error(err),
		)
		return err
	}
	a.logger.Info("Customers table is ready")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	customerManager, err := customer.NewManager(cmd.Context(), logger, a.provider)
	if err != nil {
		logger.Error("Cannot initialize CustomerManager",
			zap.Error(err),
		)
		return err
	}

	var publisher customer.Publisher = broker.Nop{}
	if a.cfg.AMQPURI != "" {
		amqpBroker, err := broker.NewAMQPBroker(a.cfg.AMQPURI)
		if err != nil {
			logger.Error("Cannot connect to Broker",
				zap.Error(err),
			)
			return err
		}
		defer amqpBroker.Close()
		publisher = amqpBroker
	} else {
		logger.Info("AMQP_URI is not set, customer events are disabled")
	}

	customerService, err := customer.NewService(customer.Options{
		CustomerManager: customerManager,
		Publisher:       publisher,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("Cannot initialize Customer Service Router",
			zap.Error(err),
		)
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := newRouter(routerOptions{
		Logger:          logger,
		Provider:        a.provider,
		CustomerService: customerService,
		Registry:        registry,
		CORSOrigins:     a.cfg.CORSOrigins,
	})
	if err != nil {
		logger.Error("Cannot initialize router",
			zap.Error(err),
		)
		return err
	}

	srv := &http.Server{
		Handler: handler,
		Addr:    a.cfg.ListenAddr,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Listening",
			zap.String("Addr", srv.Addr),
		)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped unexpectedly",
				zap.Error(err),
			)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "customers",
		Short:         "HTTP service for the customers table",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Create the customers table if needed and serve the HTTP API",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "bootstrap",
			Short: "Create the customers table if needed and exit",
			RunE:  runBootstrap,
		},
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("customers: %v\n", err)
	}
}
