package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/extractor"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/sirupsen/logrus"
)

// imageField is the multipart field and JSON key carrying the image.
const imageField = "image"

var errNoImage = errors.New("request carries no image")

// RecognizeHandler identifies the person in an uploaded image.
type RecognizeHandler struct {
	extractor     extractor.Extractor
	gallery       gallery.Provider
	comparator    facematch.Comparator
	tolerance     float64
	timeout       time.Duration
	maxUploadSize int64
	log           logrus.FieldLogger
}

// NewRecognizeHandler creates a recognize handler. An invalid match strategy
// is an error so a typo does not silently change which person is reported.
func NewRecognizeHandler(cfg *config.Config, ext extractor.Extractor, provider gallery.Provider, log logrus.FieldLogger) (*RecognizeHandler, error) {
	strategy, err := facematch.ParseStrategy(cfg.Match.Strategy)
	if err != nil {
		return nil, err
	}
	return &RecognizeHandler{
		extractor:     ext,
		gallery:       provider,
		comparator:    facematch.Comparator{Strategy: strategy},
		tolerance:     cfg.Match.Tolerance,
		timeout:       cfg.Extractor.Timeout,
		maxUploadSize: cfg.Server.MaxUploadSize,
		log:           logging.OrDiscard(log),
	}, nil
}

// Recognize handles POST /recognize.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithField(logging.RequestIDField, chiMiddleware.GetReqID(r.Context()))

	data, err := h.readImage(w, r)
	if err != nil {
		log.WithError(err).Debug("no usable image in request")
		respondResult(w, facematch.NoImage())
		return
	}

	img, format, err := imaging.Decode(data)
	if err != nil {
		log.WithError(err).Debug("image could not be decoded")
		respondResult(w, facematch.NoImage())
		return
	}
	log = log.WithFields(logrus.Fields{"format": format, "width": img.Bounds().Dx(), "height": img.Bounds().Dy()})

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	embeddings, err := h.extractor.Extract(ctx, img)
	if err != nil {
		if errors.Is(err, extractor.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			log.WithError(err).Warn("embedding extraction timed out")
			respondResult(w, facematch.Timeout())
			return
		}
		log.WithError(err).Error("embedding extraction failed")
		respondResult(w, facematch.ExtractionFailed())
		return
	}
	if len(embeddings) == 0 {
		log.Info("no face detected")
		respondResult(w, facematch.NoFaceDetected())
		return
	}
	if len(embeddings) > 1 {
		log.WithField("faces", len(embeddings)).Debug("multiple faces detected, using the first")
	}

	loaded := h.gallery.Load(r.Context())
	result := h.comparator.Compare(embeddings[0], loaded.Gallery, h.tolerance)

	fields := logrus.Fields{"source": loaded.Source, "entries": len(loaded.Gallery), "outcome": result.Kind}
	if result.Success() {
		fields["person"] = sanitizeForLog(result.Name)
		fields["distance"] = result.Distance
	}
	log.WithFields(fields).Info("recognition finished")

	respondResult(w, result)
}

// readImage returns the raw image bytes from a multipart upload or a JSON
// body with a base64 image.
func (h *RecognizeHandler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, errNoImage
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, fmt.Errorf("parsing multipart form: %w", err)
		}
		file, header, err := r.FormFile(imageField)
		if err != nil {
			return nil, errNoImage
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", sanitizeForLog(header.Filename), err)
		}
		return data, nil

	case "application/json":
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("decoding JSON body: %w", err)
		}
		if req.Image == "" {
			return nil, errNoImage
		}
		return imaging.DecodeBase64(req.Image)

	default:
		return nil, errNoImage
	}
}

// respondResult writes a recognition result. Business outcomes are 200;
// extractor failures map to gateway errors.
func respondResult(w http.ResponseWriter, result facematch.Result) {
	respondJSON(w, statusFor(result.Kind), resultBody(result))
}

func statusFor(kind facematch.ResultKind) int {
	switch kind {
	case facematch.KindTimeout:
		return http.StatusGatewayTimeout
	case facematch.KindExtractFailure:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func resultBody(result facematch.Result) map[string]any {
	if result.Success() {
		return map[string]any{
			"success":     true,
			"person_name": result.Name,
			"confidence":  result.Confidence,
			"distance":    result.Distance,
		}
	}

	body := map[string]any{
		"success": false,
		"reason":  string(result.Kind),
	}
	switch result.Kind {
	case facematch.KindNoKnownFaces:
		body["encoding_length"] = result.EmbeddingLength
	case facematch.KindLowConfidence:
		// +Inf has no JSON representation; it only occurs when no entry had a comparable dimension.
		if math.IsInf(result.MinDistance, 0) || math.IsNaN(result.MinDistance) {
			body["min_distance"] = nil
		} else {
			body["min_distance"] = result.MinDistance
		}
	}
	return body
}
