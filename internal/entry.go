// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wikimeta/internal/api"
	"github.com/starford/wikimeta/internal/database"
	"github.com/starford/wikimeta/internal/index"
	"github.com/starford/wikimeta/internal/mcpserver"
	"github.com/starford/wikimeta/internal/metastore"
	"github.com/starford/wikimeta/internal/metrics"
	"github.com/starford/wikimeta/internal/storage"
	"github.com/starford/wikimeta/internal/userdir"
	"github.com/starford/wikimeta/internal/wiki"
)

// components holds everything both entrypoints share.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	conn    *sql.DB
	store   *storage.FS
	db      *index.DB
	metrics *metrics.Metrics
	svc     *wiki.Service
}

func setup(ctx context.Context, opts ...Option) (*components, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("default_user", cfg.Users.Default),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// The tag index and the metadata store share one database.
	conn, err := database.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db, err := index.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	m := metrics.New()
	meta, err := metastore.Open(ctx, conn,
		metastore.WithMetrics(m),
		metastore.WithLogger(logger))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init metadata store: %w", err)
	}

	users := userdir.New(cfg.Users.Known, meta, logger)
	svc := wiki.NewService(store, db, meta, users, logger)

	// Pages removed while the service was down lose their current metadata here.
	if err := index.Sync(db, store, logger, svc.HandlePageEvent); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &components{
		cfg:     cfg,
		logger:  logger,
		conn:    conn,
		store:   store,
		db:      db,
		metrics: m,
		svc:     svc,
	}, nil
}

// Run starts the HTTP server and the vault watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	c, err := setup(ctx, opts...)
	if err != nil {
		return err
	}
	defer c.conn.Close()

	cfg, logger := c.cfg, c.logger

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, cfg.Users.Default)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(c.metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.conn.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.App.Metrics.Enabled {
		r.Handle(cfg.App.Metrics.Path, c.metrics.Handler())
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the vault; removed pages retire their metadata.
	g.Go(func() error {
		if err := index.Watch(gCtx, c.db, c.store, cfg.Vault.Path, logger, c.svc.HandlePageEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs must go elsewhere (see WithLogOutput).
func RunMCP(ctx context.Context, opts ...Option) error {
	c, err := setup(ctx, opts...)
	if err != nil {
		return err
	}
	defer c.conn.Close()

	c.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(c.svc, c.cfg.Users.Default).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
