// Package cli wires configuration, logging and the backend into the gastos
// commands.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/config"
	applog "gastos/internal/log"
)

// LoadEnvFile loads the .env file for local development. A missing default file is
// ignored; an explicitly named one must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	return godotenv.Load(path)
}

// SetupLogger builds the application logger from config and makes it the default.
// Logs go to w so command output on stdout stays clean.
func SetupLogger(cfg *config.Config, w io.Writer) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentCLI,
		Output:    w,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup runs
// first with a context bounded by timeout; done closes once it has returned.
func GracefulShutdown(parent context.Context, logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-parent.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
