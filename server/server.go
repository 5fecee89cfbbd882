// Package server exposes the automation jobs over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"baikuk-automation/config"
	"baikuk-automation/utils"
)

// Server is the HTTP API.
type Server struct {
	httpServer *http.Server
	logger     *utils.Logger
}

// New builds the router and the HTTP server around h.
func New(cfg *config.Config, h *Handlers, logger *utils.Logger) *Server {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewRouter(cfg, h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// NewRouter wires middleware and routes.
func NewRouter(cfg *config.Config, h *Handlers, logger *utils.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(logger), middleware.Recoverer)
	// pages served over HTTPS call this API on localhost
	r.Use(middleware.SetHeader("Access-Control-Allow-Private-Network", "true"))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/run-crawler", h.RunCrawler)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		r.Get("/ping", h.Ping)
		r.Post("/gris-start", h.GrisStart)
		r.Get("/gris-job/{id}", h.GrisJob)
		r.Get("/crawler-job/{id}", h.CrawlerJob)
	})

	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("[server] Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("[server] Stopping")
	return s.httpServer.Shutdown(ctx)
}
