package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/config"
	"github.com/jackzampolin/pdfsplit/internal/download"
	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/home"
	"github.com/jackzampolin/pdfsplit/internal/pdfeng"
	"github.com/jackzampolin/pdfsplit/internal/run"
	"github.com/jackzampolin/pdfsplit/internal/server/endpoints"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// Server is the main pdfsplit HTTP server. It owns the run manager and its
// collaborators; endpoints reach them through the request context.
type Server struct {
	httpServer *http.Server
	runner     *run.Manager
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8675)
	Port string
	// Home is the application home directory
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// SwaggerSpecPath overrides the default swagger.json location
	SwaggerSpecPath string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8675"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}

	appCfg := cfg.ConfigManager.Get()

	gsRunner := gs.New(appCfg.Ghostscript.Binary)
	engine := pdfeng.New(gsRunner)
	downloader := download.New(appCfg.MaxDownloadBytes(), cfg.Logger)
	runner := run.NewManager(engine, gsRunner, downloader, cfg.Logger)

	s := &Server{
		runner:    runner,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
		services: &svcctx.Services{
			Runner:     runner,
			Config:     cfg.ConfigManager,
			Engine:     engine,
			GS:         gsRunner,
			Downloader: downloader,
			Home:       cfg.Home,
			Logger:     cfg.Logger,
		},
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{SwaggerSpecPath: cfg.SwaggerSpecPath}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr: net.JoinHostPort(cfg.Host, cfg.Port),
		// No WriteTimeout: the event stream holds its connection open for
		// the duration of a run.
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return s, nil
}

// Start starts the server. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.services.Home.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	s.sweepStaleRunDirs()

	if !s.runner.TransformerAvailable() {
		s.logger.Warn("ghostscript not found, compression and repair are disabled")
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and the active run.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Ask the active run to stop before cutting connections.
	s.runner.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Cancellation is cooperative: in-flight compression workers finish
	// their parts and keep emitting events. Wait for the session's terminal
	// state before closing the dispatcher they emit into.
	if err := s.runner.Wait(shutdownCtx); err != nil {
		s.logger.Error("timed out waiting for active run to stop", "error", err)
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.runner.Close()

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// sweepStaleRunDirs removes per-run scratch directories left behind by a
// previous process that did not shut down cleanly. Runs clean up after
// themselves; anything still here is orphaned.
func (s *Server) sweepStaleRunDirs() {
	h := s.services.Home
	entries, err := os.ReadDir(h.RunsPath())
	if err != nil {
		return
	}
	for _, entry := range entries {
		if err := h.CleanupRunDir(entry.Name()); err != nil {
			s.logger.Warn("failed to remove stale run directory", "run", entry.Name(), "error", err)
			continue
		}
		s.logger.Info("removed stale run directory", "run", entry.Name())
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Runner returns the run manager.
func (s *Server) Runner() *run.Manager {
	return s.runner
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the server's root HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the run manager isn't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.runner == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
