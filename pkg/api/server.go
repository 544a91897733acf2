// Package api serves the HTTP control endpoints: start a crawl, poll runs, read back results
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/jobs"
	"github.com/Sriram-PR/product-scraper/pkg/metrics"
)

// RunManager is the subset of *jobs.Manager the handlers use
type RunManager interface {
	Submit(seeds []string) (jobs.Run, <-chan struct{}, error)
	Get(id string) (jobs.Run, error)
	List() []jobs.Run
}

// Output is the readable side of the CSV sink
type Output interface {
	Path() string
	Entries() ([]string, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	cfg        config.ServerConfig
	router     http.Handler
	httpServer *http.Server
	runs       RunManager
	output     Output
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	log        *logrus.Entry
}

// NewServer wires the router. gatherer backs /metrics and should be the registry m was created on.
func NewServer(cfg config.ServerConfig, runs RunManager, output Output, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *logrus.Entry) *Server {
	s := &Server{
		cfg:      cfg,
		runs:     runs,
		output:   output,
		metrics:  m,
		gatherer: gatherer,
		log:      logger,
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the server stops. A graceful Shutdown is not reported as an error.
func (s *Server) ListenAndServe() error {
	s.log.Infof("HTTP server listening on %s", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for open requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
