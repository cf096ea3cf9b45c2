package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pathwise/trendintel/internal/fetcher"
	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/scheduler"
	"github.com/pathwise/trendintel/internal/store"
)

// Pipeline is the subset of the scheduler served over HTTP.
type Pipeline interface {
	RunFullPipeline(ctx context.Context, pathID, nicheName, subSector string) scheduler.RunResult
	RefreshIfStale(ctx context.Context, pathID, nicheName, subSector string) (scheduler.RunResult, bool)
	ComputeTrendInsight(ctx context.Context, pathID, nicheName, subSector string) (model.TrendInsight, error)
	CheckPipelineHealth(ctx context.Context) scheduler.Health
	GetDataSourceStatus() []fetcher.SourceStatus
	HasAnyDataSource() bool
	Status(pathID string) (model.PipelineRun, bool)
}

// Config holds server settings.
type Config struct {
	Port            int
	RunTimeout      time.Duration // Upper bound for a pipeline run started over HTTP (default: 2m)
	ShutdownTimeout time.Duration // Grace period for in-flight requests (default: 10s)
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	pipeline Pipeline
	signals  store.SignalStore
	progress http.Handler
	logger   *slog.Logger

	srv *http.Server
}

// New creates a Server. progress may be nil to disable the websocket stream.
func New(cfg Config, pipeline Pipeline, signals store.SignalStore, progress http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		signals:  signals,
		progress: progress,
		logger:   logger,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("GET /api/paths/{pathID}/insight", s.handleInsight)
	mux.HandleFunc("GET /api/paths/{pathID}/signals", s.handleSignals)
	mux.HandleFunc("GET /api/paths/{pathID}/status", s.handleStatus)
	mux.HandleFunc("POST /api/paths/{pathID}/run", s.handleRun)
	if s.progress != nil {
		mux.Handle("GET /ws/progress", s.progress)
	}
	return mux
}

// Start listens in the background. Listen errors are returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "err", err)
		}
	}()

	s.logger.Info("http server started", "addr", ln.Addr().String())
	return nil
}

// Stop drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
