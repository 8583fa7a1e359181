package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/config"
	"github.com/tutorlink/tutorlink/internal/observability"
	"github.com/tutorlink/tutorlink/internal/server"
	"github.com/tutorlink/tutorlink/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file (restart to apply engine changes)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	environment := "production"
	if cfg.Debug.Enabled {
		environment = "development"
	}
	observability.InitServerLogger(config.AppName, cfg.Logging.Level, environment)
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return fmt.Errorf("metrics initialization failed: %w", err)
		}
	}

	rt, err := buildRuntime(ctx, cfg, logger, runtimeOptions{sessions: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	health := handlers.NewHealthManager(versionInfo.Version)
	registerHealthChecks(health, rt)

	srv := server.New(server.Options{
		Config:         cfg.Server,
		Build:          buildInfo(),
		Learning:       rt.service,
		Health:         health,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	logger.Info("Initializing server",
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("requests_per_minute", cfg.Engine.RequestsPerMinute),
		zap.Int("max_workers", rt.engine.MaxWorkers()),
		zap.Bool("metrics", cfg.Metrics.Enabled))

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	errChan := make(chan error, 2)
	done := make(chan struct{})

	// Handlers run LIFO: the HTTP server stops before the logger flushes.
	signals.OnShutdown(func(ctx context.Context) error {
		defer close(done)
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: re-reading config file")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				logger.Info("No config file found - using defaults and environment variables")
				return nil
			}
			logger.Error("Failed to reload config file", zap.String("file", viper.ConfigFileUsed()), zap.Error(err))
			return fmt.Errorf("%w: %w", errConfig, err)
		}
		if _, err := loadConfig(); err != nil {
			logger.Error("Reloaded config is invalid", zap.Error(err))
			return err
		}
		logger.Info("Configuration reloaded; restart to apply engine and provider changes",
			zap.String("file", viper.ConfigFileUsed()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		return nil
	}
}

func buildInfo() handlers.BuildInfo {
	return handlers.BuildInfo{
		Name:      config.AppName,
		Version:   versionInfo.Version,
		Commit:    versionInfo.Commit,
		BuildDate: versionInfo.BuildDate,
	}
}

// registerHealthChecks wires readiness probes for the runtime's dependencies.
// The store is critical; redis and the provider only degrade readiness.
func registerHealthChecks(health *handlers.HealthManager, rt *appRuntime) {
	if rt.store != nil {
		health.RegisterChecker("store", handlers.CheckerFunc(func(ctx context.Context) error {
			return rt.store.DB.PingContext(ctx)
		}))
	}
	if rt.redis != nil {
		health.RegisterOptional("redis", handlers.CheckerFunc(rt.redis.Ping))
	}
	health.RegisterOptional("provider", handlers.CheckerFunc(func(ctx context.Context) error {
		if !rt.cfg.AILink.HasProviders() {
			return fmt.Errorf("no enabled providers configured")
		}
		return nil
	}))
	if rt.cfg.Metrics.Enabled {
		health.RegisterOptional("telemetry", handlers.CheckerFunc(func(ctx context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return fmt.Errorf("telemetry system not initialized")
			}
			return nil
		}))
	}
}
