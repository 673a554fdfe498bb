// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/moneta and cmd/recurring-worker.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneta/internal/backend"
	"moneta/internal/config"
	"moneta/internal/log"
)

// SetupLogger builds the handler selected by LOG_LEVEL and LOG_FORMAT,
// writing to stdout. When ring is not nil it retains warnings and audit
// records as well. The logger is installed as the default logger.
func SetupLogger(cfg *config.Config, ring *log.Ring) *slog.Logger {
	return setupLogger(os.Stdout, cfg, ring)
}

func setupLogger(w io.Writer, cfg *config.Config, ring *log.Ring) *slog.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	handler := log.NewHandler(w, level, cfg.LogFormat)
	if ring != nil {
		handler = ring.Handler(handler)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, then runs any
// binary specific checks. Returns the config or exits the process on
// validation failure.
func LoadAndValidateConfig(checks ...func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg, checks...); err != nil {
		slog.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

func validate(cfg *config.Config, checks ...func(*config.Config) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

// InitBackend opens the configured store.
// Returns the store or exits the process on failure.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// InitEvents opens the configured event transport for the given consumer.
func InitEvents(ctx context.Context, logger *slog.Logger, cfg *config.Config, consumer backend.Consumer) *backend.EventsResult {
	ecfg, err := backend.EventsFromAppConfig(cfg, consumer)
	if err != nil {
		logger.Error("Invalid events configuration", log.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.With(log.FieldComponent, log.ComponentEvents)).CreateEvents(ctx, ecfg)
	if err != nil {
		logger.Error("Failed to initialize events", log.FieldError, err, "driver", ecfg.Driver)
		os.Exit(1)
	}
	return res
}

// Close runs cleanup functions in reverse order, logging failures.
func Close(logger *slog.Logger, cleanups ...backend.CleanupFunc) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		if cleanups[i] == nil {
			continue
		}
		if err := cleanups[i](); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
