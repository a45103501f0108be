// Package server exposes the progress of a running experiment over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haskel/variantlab/internal/config"
	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/monitor"
	"github.com/haskel/variantlab/internal/server/middleware"
)

// StatusSource is implemented by the orchestrator.
type StatusSource interface {
	Status() experiment.ExecutionStatus
	Summary() string
}

type Server struct {
	httpServer *http.Server
	source     StatusSource
	aggregator *monitor.Aggregator
	gatherer   prometheus.Gatherer
	cfg        config.StatusConfig
	logger     *slog.Logger
	version    string
}

// New builds the status server. agg and gatherer may be nil, which disables
// /resources and /metrics respectively.
func New(cfg config.StatusConfig, source StatusSource, agg *monitor.Aggregator, gatherer prometheus.Gatherer, logger *slog.Logger, version string) *Server {
	s := &Server{
		source:     source,
		aggregator: agg,
		gatherer:   gatherer,
		cfg:        cfg,
		logger:     logger,
		version:    version,
	}

	handler := middleware.Chain(
		s.setupRoutes(),
		middleware.Recovery(logger),
		middleware.Logging(logger, "/health", "/metrics"),
		middleware.SecurityHeaders(),
		middleware.RateLimit(cfg.RateLimit, "/health"),
		middleware.BasicAuth(cfg.Auth, "/health"),
	)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("status server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("status server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
