// Package web wires the HTTP router, middleware and handlers of the service.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/extractor"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/kozaktomas/face-recognizer/internal/web/middleware"
	"github.com/sirupsen/logrus"
)

// requestSlack is added to the extractor timeout to bound a whole request.
const requestSlack = 30 * time.Second

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	extractor  extractor.Extractor
	gallery    gallery.Provider
	log        logrus.FieldLogger
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, ext extractor.Extractor, provider gallery.Provider, log logrus.FieldLogger) (*Server, error) {
	r := chi.NewRouter()
	log = logging.OrDiscard(log)

	s := &Server{
		config:    cfg,
		router:    r,
		extractor: ext,
		gallery:   provider,
		log:       log,
	}

	requestTimeout := cfg.Extractor.Timeout + requestSlack

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(requestTimeout))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Serve accepts connections on l instead of binding the configured address.
func (s *Server) Serve(l net.Listener) error {
	s.log.WithField("addr", l.Addr().String()).Info("starting web server")
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
