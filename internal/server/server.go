// Package server provides the read-only HTTP status API for labeling runs.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/radlabel/internal/config"
	"github.com/hyperjump/radlabel/internal/job"
	"go.uber.org/zap"
)

// StatusSource reports the window plan and run state. *job.Job implements it.
type StatusSource interface {
	Plan() (*job.Plan, error)
	Status(ctx context.Context) ([]job.WindowStatus, error)
	WindowStatus(ctx context.Context, index int) (*job.WindowStatus, error)
}

// Server is the HTTP server for the status API.
type Server struct {
	source  StatusSource
	metrics http.Handler
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. metrics may be nil,
// in which case /metrics is not served.
func NewServer(source StatusSource, metrics http.Handler, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		source:  source,
		metrics: metrics,
		config:  cfg,
		logger:  logger,
	}
}

// Router returns the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/plan", s.handlePlan)
	r.Get("/api/v1/windows", s.handleWindows)
	r.Get("/api/v1/windows/{index}", s.handleWindow)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
