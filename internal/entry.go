// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
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

	"github.com/starford/trihash/internal/api"
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/frame"
	"github.com/starford/trihash/internal/hashgen"
	"github.com/starford/trihash/internal/hashservice"
	"github.com/starford/trihash/internal/mcpserver"
	"github.com/starford/trihash/internal/sink"
	"github.com/starford/trihash/internal/sse"
	"github.com/starford/trihash/internal/store"
	"github.com/starford/trihash/internal/trigger"
)

// components are shared by the HTTP and MCP hosts.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	frames  *frame.Set
	svc     *hashservice.Service
	closers []func() error
}

func (rt *components) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func setup(opts []Option, extra ...trigger.Publisher) (*components, error) {
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
		slog.String("frames_path", cfg.Frames.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("export_dir", cfg.Export.Dir),
		slog.Bool("redis_trigger", cfg.Trigger.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt := &components{cfg: cfg, logger: logger}

	// Frames are required up front; a bad document stops startup.
	set, err := frame.Load(cfg.Frames.Path)
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	rt.frames = set
	logger.Info("Frames loaded",
		slog.Int("frames", set.Len()),
		slog.String("checksum", set.Checksum()))

	// Ensure export directory exists.
	if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	exports, err := sink.NewFS(cfg.Export.Dir)
	if err != nil {
		return nil, fmt.Errorf("init export sink: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	rt.closers = append(rt.closers, db.Close)

	pubs := trigger.Fanout(extra)
	if cfg.Trigger.Enabled() {
		redisPub, err := trigger.NewRedisPublisher(trigger.RedisOptions{
			URL:     cfg.Trigger.RedisURL,
			Key:     cfg.Trigger.Key,
			Channel: cfg.Trigger.Channel,
		})
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("init redis trigger: %w", err)
		}
		rt.closers = append(rt.closers, redisPub.Close)
		pubs = append(pubs, redisPub)
	}

	rt.svc = hashservice.NewService(
		engine.New(set, hashgen.New()),
		db,
		hashservice.WithSink(exports),
		hashservice.WithPublisher(pubs),
		hashservice.WithLogger(logger),
		hashservice.WithWorkers(cfg.Hash.Workers),
	)
	return rt, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := setup(opts, broker)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if rt.svc.Frames() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no frames"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload frames on change and announce them to subscribers.
	if cfg.Frames.Watch {
		g.Go(func() error {
			err := frame.Watch(gCtx, cfg.Frames.Path, rt.frames, logger, func(next *frame.Set) {
				rt.svc.SetFrames(gCtx, next)
			})
			if err != nil {
				logger.Warn("frames watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams only end when the broker closes.
		broker.Close()

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

// RunMCP serves the MCP tools over stdio against the same store, export
// sink and triggers as Run. Logs go to stderr unless WithLogOutput says
// otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.close()

	srv := mcpserver.New(rt.svc)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
