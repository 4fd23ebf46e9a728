package handlers

import (
	"context"
	"net/http"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/sirupsen/logrus"
)

// Refresher reloads the gallery, bypassing any cache.
type Refresher interface {
	Refresh(ctx context.Context) gallery.LoadResult
}

// GalleryHandler exposes gallery maintenance endpoints.
type GalleryHandler struct {
	refresher Refresher
	log       logrus.FieldLogger
}

// NewGalleryHandler creates a gallery handler.
func NewGalleryHandler(refresher Refresher, log logrus.FieldLogger) *GalleryHandler {
	return &GalleryHandler{refresher: refresher, log: logging.OrDiscard(log)}
}

// Refresh handles POST /gallery/refresh.
func (h *GalleryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		respondError(w, http.StatusServiceUnavailable, "gallery unavailable")
		return
	}

	result := h.refresher.Refresh(r.Context())
	h.log.WithFields(logrus.Fields{
		logging.RequestIDField: chiMiddleware.GetReqID(r.Context()),
		"source":               result.Source,
		"entries":              len(result.Gallery),
	}).Info("gallery refreshed")

	respondJSON(w, http.StatusOK, map[string]any{
		"source":  result.Source,
		"entries": len(result.Gallery),
	})
}
