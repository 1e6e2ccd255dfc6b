// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/shelf/internal/api"
	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/engine"
	"github.com/starford/shelf/internal/index"
	"github.com/starford/shelf/internal/instance"
	"github.com/starford/shelf/internal/mcpserver"
	"github.com/starford/shelf/internal/notify"
	"github.com/starford/shelf/internal/schema"
	"github.com/starford/shelf/internal/sse"
	"github.com/starford/shelf/internal/watcher"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger initializes the structured JSON logger.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// stack is everything that depends on the index database.
type stack struct {
	lock    *instance.Lock
	db      *index.DB
	eng     *engine.Engine
	watcher *watcher.Watcher
	sub     *watcher.Subscription
	out     *notify.Notifier
}

// openStack locks and opens the database and builds the engine. With live
// set, a watcher is started and subscribed to before the first scan, so no
// change after the scan is lost.
func openStack(cfg *Config, logger *slog.Logger, sink notify.Sink, live bool) (*stack, error) {
	lock, err := instance.Acquire(instance.PathFor(cfg.SQLite.Path))
	if err != nil {
		return nil, err
	}
	s := &stack{lock: lock}

	s.db, err = index.Open(cfg.SQLite.Path)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	s.out = notify.New(sink, cfg.Notify.Notifier())
	s.eng, err = engine.New(s.db, schema.NewCache(nil, logger),
		engine.WithLogger(logger),
		engine.WithEmitter(s.out))
	if err != nil {
		s.close()
		return nil, fmt.Errorf("init engine: %w", err)
	}

	if live {
		s.watcher, err = watcher.New(cfg.Watcher.Watcher(), logger)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("init watcher: %w", err)
		}
		s.sub = s.watcher.Subscribe()
	}
	return s, nil
}

// setRoot points the engine, and the watcher if any, at root. Problems that
// did not stop the switch are logged and published.
func (s *stack) setRoot(logger *slog.Logger, root string) (bool, *apperr.Error) {
	var w engine.PathWatcher
	if s.watcher != nil {
		w = s.watcher
	}
	changed, aerr := s.eng.SetRoot(root, w)
	if aerr != nil && changed {
		logger.Warn("root set with errors",
			slog.String("root", root),
			slog.String("error", aerr.Error()))
		s.out.Emit(notify.Failure(aerr))
	}
	return changed, aerr
}

func (s *stack) monitor(ctx context.Context, logger *slog.Logger) error {
	return engine.RunMonitor(ctx, s.sub.Events(), s.eng, s.out, logger)
}

func (s *stack) close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	_ = s.lock.Release()
}

func logSink(logger *slog.Logger) notify.Sink {
	return notify.SinkFunc(func(n notify.Notification) {
		logger.Debug("notification",
			slog.String("kind", string(n.Kind)),
			slog.String("id", n.ID))
	})
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root_path", cfg.Root.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure root directory exists.
	if err := os.MkdirAll(cfg.Root.Path, 0o755); err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}

	broker := sse.NewBroker(cfg.Notify.Heartbeat)
	defer broker.Close()

	s, err := openStack(cfg, logger, notify.Sinks{broker, logSink(logger)}, true)
	if err != nil {
		return err
	}
	defer s.close()

	if changed, aerr := s.setRoot(logger, cfg.Root.Path); aerr != nil && !changed {
		return fmt.Errorf("set root: %w", aerr)
	}

	setRoot := func(root string) (bool, *apperr.Error) { return s.setRoot(logger, root) }
	apiRouter := api.NewRouter(s.eng, setRoot, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if s.eng.Root() == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no root"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Apply file events to the index.
	g.Go(func() error {
		return s.monitor(gCtx, logger)
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stop()

		// SSE streams never go idle; end them so Shutdown does not wait.
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

	logger.Info("Server stopped successfully",
		slog.Uint64("suppressed_notifications", s.out.Suppressed()),
		slog.Uint64("dropped_events", s.watcher.Dropped()))
	return nil
}

// ScanSummary reports the outcome of a one-shot scan.
type ScanSummary struct {
	Root    string
	Files   int
	Folders int
	Schemas int
	// EmptySchemas counts schema files that declare no items.
	EmptySchemas int
	Problems     *apperr.Error
	Took         time.Duration
}

// Scan rebuilds the index for the configured root once and exits.
func Scan(ctx context.Context, opts ...Option) (*ScanSummary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	logger := app.logger()

	s, err := openStack(cfg, logger, logSink(logger), false)
	if err != nil {
		return nil, err
	}
	defer s.close()

	start := time.Now()
	changed, aerr := s.eng.SetRoot(cfg.Root.Path, nil)
	if aerr != nil && !changed {
		return nil, fmt.Errorf("set root: %w", aerr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, folders, err := s.db.Counts()
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}
	return &ScanSummary{
		Root:         s.eng.Root(),
		Files:        files,
		Folders:      folders,
		Schemas:      len(s.eng.SchemaList()),
		EmptySchemas: len(s.eng.SchemaListAll()) - len(s.eng.SchemaList()),
		Problems:     aerr,
		Took:         time.Since(start),
	}, nil
}

// RunMCP serves the index over MCP on stdin/stdout while keeping it in sync
// with the root. Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	if app.out == os.Stdout {
		app.out = io.Discard
	}
	cfg := app.config
	logger := app.logger()

	s, err := openStack(cfg, logger, logSink(logger), true)
	if err != nil {
		return err
	}
	defer s.close()

	if changed, aerr := s.setRoot(logger, cfg.Root.Path); aerr != nil && !changed {
		return fmt.Errorf("set root: %w", aerr)
	}

	monCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = s.monitor(monCtx, logger)
	}()

	logger.Info("MCP server starting", slog.String("root", s.eng.Root()))
	return mcpserver.New(s.eng).ServeStdio()
}
