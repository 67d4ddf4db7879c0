// Package api serves the tree service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/internal/logger"
	"github.com/jmylchreest/sitetree/internal/metrics"
	"github.com/jmylchreest/sitetree/internal/service"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

const defaultShutdownTimeout = 10 * time.Second

// TreeService is the subset of service.Service the API depends on.
type TreeService interface {
	Build(ctx context.Context, req service.Request) (*linktree.Tree, error)
	Merge(ctx context.Context, req service.Request) (*linktree.Tree, error)
	Get(ctx context.Context, rootURL string) (*linktree.Tree, error)
	Delete(ctx context.Context, rootURL string) error
	List(ctx context.Context) ([]string, error)
	Visited(ctx context.Context, rootURL string) ([]linktree.VisitedURL, error)
	View(ctx context.Context, rootURL string, includeExtractedLinks bool, linkOptions *linktree.LinkOptions) (*linktree.Tree, error)
	Categorize(ctx context.Context, req service.CategorizeRequest) (*linktree.SkippedLinks, error)
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics counts requests on m and serves the metrics in g at /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// Server is the HTTP API with lifecycle management.
type Server struct {
	router          *gin.Engine
	server          *http.Server
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	shutdownTimeout time.Duration
}

// New creates a server for svc. Routes are registered immediately; the
// listener is opened by Run.
func New(svc TreeService, cfg config.ServerConfig, opts ...Option) (*Server, error) {
	s := &Server{shutdownTimeout: cfg.ShutdownTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = defaultShutdownTimeout
	}

	var maxBody uint64
	if cfg.MaxBodySize != "" {
		n, err := humanize.ParseBytes(cfg.MaxBodySize)
		if err != nil {
			return nil, fmt.Errorf("invalid server.max_body_size %q: %w", cfg.MaxBodySize, err)
		}
		maxBody = n
	}

	router := gin.New()
	router.Use(recoveryMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware())
	router.Use(requestCounterMiddleware(s.metrics))
	if maxBody > 0 {
		router.Use(bodyLimitMiddleware(int64(maxBody)))
	}

	h := &handler{svc: svc}
	router.GET("/health", h.health)
	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}

	v1 := router.Group("/api/v1")
	trees := v1.Group("/trees")
	trees.POST("/build", h.build)
	trees.POST("/merge", h.merge)
	trees.GET("", h.list)
	trees.GET("/view", h.view)
	trees.GET("/visited", h.visited)
	trees.DELETE("", h.delete)
	v1.POST("/skipped/categorize", h.categorize)

	s.router = router
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			"addr", s.server.Addr,
			"read_timeout", s.server.ReadTimeout,
			"write_timeout", s.server.WriteTimeout)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return <-errCh
}
