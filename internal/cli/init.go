// Package cli provides the initialization shared by the frugal subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"frugal/internal/config"
	applog "frugal/internal/log"
	"frugal/internal/storage"
	"frugal/internal/storage/memory"
)

// LoadEnvFile loads a .env file for local development.
// A missing file is not an error.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg, writes it to out and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *applog.Logger {
	level, _ := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// OpenLedger opens the devserver store selected by DEVSERVER_BACKEND.
func OpenLedger(cfg *config.Config, logger *applog.Logger) (storage.Ledger, error) {
	switch cfg.DevServerBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite ledger at %s: %w", cfg.SQLiteDBPath, err)
		}
		version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("read schema version: %w", err)
		}
		logger.Info("Initialized SQLite backend",
			applog.FieldOperation, applog.OpStartup,
			"path", cfg.SQLiteDBPath,
			"schema_version", version,
			"schema_dirty", dirty)
		return repo, nil
	default:
		if cfg.CategoriesFile != "" {
			logger.Info("Initialized memory backend",
				applog.FieldOperation, applog.OpStartup,
				"categories_file", cfg.CategoriesFile)
			return memory.NewFromFile(cfg.CategoriesFile), nil
		}
		logger.Info("Initialized memory backend", applog.FieldOperation, applog.OpStartup)
		return memory.NewDefault(), nil
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
