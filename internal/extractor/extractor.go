// Package extractor turns decoded images into face embeddings. The detection
// model lives outside this service; Extractor is the seam it plugs into.
package extractor

import (
	"context"
	"errors"
	"image"

	"github.com/kozaktomas/face-recognizer/internal/facematch"
)

// ErrTimeout is returned when extraction did not complete before its deadline.
var ErrTimeout = errors.New("embedding extraction timed out")

// Extractor returns one embedding per detected face, possibly none.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([]facematch.Embedding, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, img image.Image) ([]facematch.Embedding, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, img image.Image) ([]facematch.Embedding, error) {
	return f(ctx, img)
}
