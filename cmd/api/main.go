package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/entitlement-registry/internal/adapter"
	"github.com/feral-file/entitlement-registry/internal/api/server"
	"github.com/feral-file/entitlement-registry/internal/authorizer"
	"github.com/feral-file/entitlement-registry/internal/config"
	"github.com/feral-file/entitlement-registry/internal/currency"
	"github.com/feral-file/entitlement-registry/internal/domain"
	"github.com/feral-file/entitlement-registry/internal/logger"
	"github.com/feral-file/entitlement-registry/internal/messaging"
	"github.com/feral-file/entitlement-registry/internal/providers/jetstream"
	"github.com/feral-file/entitlement-registry/internal/registry"
	"github.com/feral-file/entitlement-registry/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	devMode    = flag.Bool("dev", false, "Run with in-memory store and ledger, no external services")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "registry-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Entitlement Registry API")

	registryAddress, err := domain.ParseAddress(cfg.Registry.Address)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid registry address", zap.Error(err), zap.String("address", cfg.Registry.Address))
	}

	var dataStore store.Store
	var publisher messaging.Publisher

	if *devMode {
		logger.InfoCtx(ctx, "Running in dev mode: in-memory store, no broker")
		dataStore = store.NewMemoryStore()
		publisher = messaging.NewNoopPublisher()
	} else {
		db := connectDatabase(ctx, cfg)
		if err := store.Migrate(db); err != nil {
			logger.FatalCtx(ctx, "Failed to run migrations", zap.Error(err))
		}
		dataStore = store.NewPGStore(db)

		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), adapter.NewJSON())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("stream", cfg.NATS.StreamName))
	}
	defer publisher.Close()

	// The in-process ledger holds settlement balances custodially under the
	// registry address. Swapping in an external settlement service means
	// replacing this one constructor.
	settlement := currency.NewLedger(registryAddress)

	reg := registry.New(
		registryAddress,
		dataStore,
		authorizer.New(),
		settlement,
		publisher,
		&adapter.RealClock{},
	)

	srv := server.New(cfg, reg)
	errCh := make(chan error, 1)
	go func() {
		logger.InfoCtx(ctx, "API server listening", zap.String("addr", srv.Addr()))
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Don't reuse the canceled ctx for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}

// connectDatabase opens the database with exponential backoff so the API
// survives the database coming up after it in container deployments
func connectDatabase(ctx context.Context, cfg *config.APIConfig) *gorm.DB {
	var db *gorm.DB

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 1 * time.Minute
	err := backoff.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	err = store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime,
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)
	return db
}
