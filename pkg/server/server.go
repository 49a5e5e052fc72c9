// Package server exposes the decision-support HTTP API: demand prediction,
// donor ranking, the topic-restricted chat assistant and the analytics
// snapshot. The server reads artifacts produced by the training and ingest
// commands and never writes them.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hemoflow/hemoflow/pkg/analytics"
	"github.com/hemoflow/hemoflow/pkg/artifact"
	"github.com/hemoflow/hemoflow/pkg/chat"
	"github.com/hemoflow/hemoflow/pkg/donors"
	"github.com/hemoflow/hemoflow/pkg/logx"
	"github.com/hemoflow/hemoflow/pkg/metrics"
)

// Server wires the HTTP API over the loaded artifacts.
type Server struct {
	logger   *logx.Logger
	validate *validator.Validate
	metrics  *metrics.Metrics
	echo     *echo.Echo

	chatClient *chat.Client

	mu       sync.RWMutex
	model    *artifact.Bundle
	ranker   *donors.Ranker
	snapshot *analytics.Snapshot

	topDonors int
}

// Options carries the artifacts and collaborators the server serves from.
type Options struct {
	Logger     *logx.Logger
	Model      *artifact.Bundle
	Ranker     *donors.Ranker
	Snapshot   *analytics.Snapshot
	ChatClient *chat.Client
	Registry   *prometheus.Registry
	TopDonors  int
}

// New builds the server and registers all routes.
func New(opts Options) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		logger:     opts.Logger,
		validate:   validator.New(),
		metrics:    metrics.New(reg),
		chatClient: opts.ChatClient,
		model:      opts.Model,
		ranker:     opts.Ranker,
		snapshot:   opts.Snapshot,
		topDonors:  opts.TopDonors,
	}
	if s.topDonors <= 0 {
		s.topDonors = 5
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.POST("/predict", s.handlePredict)
	e.POST("/chat", s.handleChat)
	e.POST("/api/top-donors", s.handleTopDonors)
	e.GET("/api/analytics", s.handleAnalytics)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	s.echo = e
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("HTTP server starting", "addr", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// SwapSnapshot replaces the served analytics snapshot.
func (s *Server) SwapSnapshot(snap *analytics.Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

// SwapModel replaces the served demand model.
func (s *Server) SwapModel(b *artifact.Bundle) {
	s.mu.Lock()
	s.model = b
	s.mu.Unlock()
}

// Metrics exposes the instrument set for the owning process.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
