package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Togather-Foundation/conflicts/internal/api"
	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/config"
	"github.com/Togather-Foundation/conflicts/internal/metrics"
	"github.com/Togather-Foundation/conflicts/internal/storage/backend"
	"github.com/Togather-Foundation/conflicts/internal/storage/schema"
	"github.com/Togather-Foundation/conflicts/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	host string
	port int
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	serveOpts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Open the configured database and apply migrations
- Seed the default accounts and sample events when enabled
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (SQLite, from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start against PostgreSQL
  DATABASE_BACKEND=postgres DATABASE_URL=postgres://... server serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts, serveOpts)
		},
	}

	cmd.Flags().StringVar(&serveOpts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&serveOpts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

// runServer blocks until ctx is cancelled or the listener fails.
func runServer(ctx context.Context, opts *globalOptions, serveOpts *serveOptions) error {
	cfg, logger, err := loadConfigAndLogger(opts)
	if err != nil {
		return err
	}
	if serveOpts.host != "" {
		cfg.Server.Host = serveOpts.host
	}
	if serveOpts.port != 0 {
		cfg.Server.Port = serveOpts.port
	}

	logger.Info().
		Str("version", Version).
		Str("environment", cfg.Environment).
		Str("backend", cfg.Database.Backend).
		Msg("starting conflicts server")

	metrics.Init(Version, GitCommit, BuildDate, cfg.Database.Backend)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown error")
		}
	}()

	db, err := backend.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("database close error")
		}
	}()

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	// Schema failures abort startup; the server never runs against a
	// partially initialized store.
	initCtx, initCancel := context.WithTimeout(ctx, 60*time.Second)
	err = schema.NewInitializer(db, hasher, cfg.Seed, logger).Run(initCtx)
	initCancel()
	if err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	collector := metrics.NewDBCollector(db)
	go collector.Start(ctx, 15*time.Second)
	defer collector.Stop()

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer,
		auth.WithRefreshExpiry(cfg.Auth.RefreshExpiry))

	router := api.NewRouter(api.Dependencies{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Hasher: hasher,
		Tokens: tokens,
		Build:  api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	})
	defer router.Close()

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return gracefulShutdown(server, cfg.Server, logger)
}

func gracefulShutdown(server *http.Server, cfg config.ServerConfig, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
