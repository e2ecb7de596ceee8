// Package cli holds the bootstrap steps shared by cmd/akunting and
// cmd/akunting-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"akunting/internal/backend"
	"akunting/internal/config"
	"akunting/internal/log"

	"github.com/joho/godotenv"
)

// SetupLogger installs a text logger at info level as the default. It is
// replaced by ConfigureLogger once configuration is known.
func SetupLogger() *slog.Logger {
	logger := slog.New(log.NewHandler(log.DefaultConfig()))
	slog.SetDefault(logger)
	return logger
}

// ConfigureLogger rebuilds the default logger from configuration. The
// returned Logger tags its own records with component.
func ConfigureLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(cfg.LoggerConfig(component))
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it with validate,
// which is usually (*config.Config).Validate or ValidateWorker.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend creates the store and change feed. queue overrides the AMQP
// queue name; the server passes "" to get an exclusive queue.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config, queue string) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	bc.AMQPQueue = queue

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", bc.Type)
		os.Exit(1)
	}
	return res
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM, and a
// channel closed once cleanup has finished or timed out.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
