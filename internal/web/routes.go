package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-recognizer/internal/web/handlers"
	"github.com/kozaktomas/face-recognizer/internal/web/middleware"
)

func (s *Server) setupRoutes() error {
	recognizeHandler, err := handlers.NewRecognizeHandler(s.config, s.extractor, s.gallery, s.log)
	if err != nil {
		return err
	}

	// Both Loader and CachedLoader can refresh; other providers leave the endpoint unavailable.
	var refresher handlers.Refresher
	if r, ok := s.gallery.(handlers.Refresher); ok {
		refresher = r
	}
	galleryHandler := handlers.NewGalleryHandler(refresher, s.log)

	s.router.Get("/health", handlers.HealthCheck)

	s.router.Group(func(r chi.Router) {
		if rl := s.config.RateLimit; rl.RPS > 0 {
			r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, s.log).Handler)
		}

		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/gallery/refresh", galleryHandler.Refresh)
	})

	return nil
}
