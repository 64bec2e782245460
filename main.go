package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/haulflow/pkg/config"
	"github.com/ekaya-inc/haulflow/pkg/database"
	"github.com/ekaya-inc/haulflow/pkg/handlers"
	"github.com/ekaya-inc/haulflow/pkg/logging"
	"github.com/ekaya-inc/haulflow/pkg/middleware"
	"github.com/ekaya-inc/haulflow/pkg/repositories"
	"github.com/ekaya-inc/haulflow/pkg/retry"
	"github.com/ekaya-inc/haulflow/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Int("max_excluded_rows", cfg.Pipeline.MaxExcludedRows),
		zap.Int64("max_request_bytes", cfg.Pipeline.MaxRequestBytes))

	refs, err := services.LoadReferenceLists(cfg.Pipeline.ReferenceListsPath)
	if err != nil {
		logger.Fatal("Failed to load reference lists", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := db.Migrate(cfg.Pipeline.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	// Wire repositories, services and handlers
	profileRepo := repositories.NewProfileRepository()
	profileService := services.NewProfileService(profileRepo, logger)
	validationService := services.NewValidationService(profileRepo, services.PipelineConfig{
		MaxExcludedRows: cfg.Pipeline.MaxExcludedRows,
		ReferenceLists:  refs,
	}, logger)

	scope := handlers.ScopeMiddleware(database.WithRequestScope(db, logger))
	maxBytes := cfg.Pipeline.MaxRequestBytes

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(logger).RegisterRoutes(mux)
	handlers.NewProfilesHandler(profileService, maxBytes, logger).RegisterRoutes(mux, scope)
	handlers.NewMappingsHandler(maxBytes, logger).RegisterRoutes(mux)
	handlers.NewFiltersHandler(maxBytes, logger).RegisterRoutes(mux)
	handlers.NewValidationHandler(validationService, maxBytes, logger).RegisterRoutes(mux, scope)

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting haulflow", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// newLogger builds a development logger for local runs and a JSON production logger
// otherwise, at the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.IsLocal() {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "haulflow")), nil
}

// connectDatabase opens the profile store, retrying while Postgres is still starting.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	retryCfg := retry.DefaultConfig()
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}

	return retry.DoIfRetryable(ctx, retryCfg, func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
}
