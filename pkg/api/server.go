// Package api serves a recording archive over HTTP.
//
// Routes under /api/v1 answer with an APIResponse JSON envelope, except the
// raw and csv downloads. When an API key is configured every /api/v1 route
// requires it in the X-API-Key header.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the API server state
type Server struct {
	archive RecordingArchive
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(archive RecordingArchive, config ServerConfig, metrics *Metrics) *Server {
	config = config.withDefaults()
	if metrics == nil {
		metrics = NewMetrics(config.Registerer)
	}
	return &Server{
		archive: archive,
		config:  config,
		metrics: metrics,
	}
}

// Router returns the handler for every route
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.config.Logger))
	r.Use(middleware.Recoverer)

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(apiKeyMiddleware(s.config.APIKey, s.metrics))
		}

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/recordings", s.metrics.InstrumentHandler("GET", "/api/v1/recordings", s.handleList))
		r.Post("/recordings", s.metrics.InstrumentHandler("POST", "/api/v1/recordings", s.handlePut))
		r.Get("/recordings/{id}", s.metrics.InstrumentHandler("GET", "/api/v1/recordings/{id}", s.handleStat))
		r.Get("/recordings/{id}/raw", s.metrics.InstrumentHandler("GET", "/api/v1/recordings/{id}/raw", s.handleRaw))
		r.Get("/recordings/{id}/csv", s.metrics.InstrumentHandler("GET", "/api/v1/recordings/{id}/csv", s.handleCSV))
		r.Delete("/recordings/{id}", s.metrics.InstrumentHandler("DELETE", "/api/v1/recordings/{id}", s.handleDelete))
	})

	return r
}

// StartServer serves archive on config.Addr until ctx is done, then shuts
// down gracefully
func StartServer(ctx context.Context, archive RecordingArchive, config ServerConfig) error {
	s := NewServer(archive, config, nil)
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.config.Logger.Info("starting framerec API server", "addr", s.config.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
