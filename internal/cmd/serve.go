package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/advisor"
	"github.com/finsight/finsight/internal/ailink"
	"github.com/finsight/finsight/internal/auth"
	errwrap "github.com/finsight/finsight/internal/errors"
	"github.com/finsight/finsight/internal/news"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/server"
	"github.com/finsight/finsight/internal/server/handlers"
	"github.com/finsight/finsight/internal/stocks"
	"github.com/finsight/finsight/internal/store"
	"github.com/finsight/finsight/internal/vector"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server shuts down the HTTP listener, closes the store, and flushes
logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if serverHost != "" {
			cfg.Server.Host = serverHost
		}
		if serverPort != 0 {
			cfg.Server.Port = serverPort
		}

		observability.InitServerLogger("finsight", cfg.Logging.Level)
		logger := observability.ServerLogger

		ctx := cmd.Context()

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics("finsight", cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		logger.Info("Initializing server",
			zap.String("service", "finsight"),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", observability.GetMetricsPort()))

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			logger.Error("Failed to open store", zap.Error(err))
			return errwrap.WrapDatabaseError(ctx, err, "store initialization failed")
		}
		if err := st.Migrate(ctx); err != nil {
			logger.Error("Failed to migrate store", zap.Error(err))
			return errwrap.WrapDatabaseError(ctx, err, "store migration failed")
		}

		newsClient, err := news.New(cfg.News)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "news client configuration invalid")
		}
		stocksClient, err := stocks.New(cfg.Stocks)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "stocks client configuration invalid")
		}
		llmClient, err := ailink.New(cfg.LLM)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "llm client configuration invalid")
		}
		vectorClient := vector.New(cfg.Vector)

		engine, err := advisor.NewEngine(cfg.Advisor, newsClient, vectorClient, llmClient, st)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "advisor initialization failed")
		}

		issuer, err := auth.NewTokenIssuer(cfg.Auth)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "auth configuration invalid")
		}

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("store", handlers.HealthCheckerFunc(func(ctx context.Context) error {
			return st.DB.PingContext(ctx)
		}))
		if vectorClient.Enabled() {
			hm.RegisterChecker("vector_store", handlers.HealthCheckerFunc(func(ctx context.Context) error {
				_, err := vectorClient.Query(ctx, "health", 1)
				return err
			}))
		}

		srv := server.New(cfg.Server, server.Deps{
			Engine:     engine,
			News:       newsClient,
			Stocks:     stocksClient,
			Users:      st,
			History:    st,
			Strategies: st,
			Issuer:     issuer,
			Health:     hm,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP server first, store next, logger
		// flush last.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if observability.PrometheusExporter != nil {
				logger.Info("Stopping metrics exporter...")
				_ = observability.PrometheusExporter.Stop()
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Closing store...")
			if err := st.Close(); err != nil {
				logger.Warn("Store close returned error", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			logger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (overrides config)")
}
