// Package imaging decodes uploaded images and prepares them for the extractor.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage is returned for zero-length input.
	ErrEmptyImage = errors.New("empty image")

	// ErrImageTooLarge is returned when the declared dimensions exceed MaxImagePixels.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// JPEGQuality is used when re-encoding images for the extractor.
const JPEGQuality = 90

// Decode decodes JPEG, PNG, GIF, BMP, TIFF or WebP data into pixels.
// Images larger than constants.MaxImagePixels are rejected before decoding.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	// The header is checked first; pixel buffers are sized from it.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > constants.MaxImagePixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// DecodeBase64 decodes a base64 string, optionally prefixed with a data URL
// header such as "data:image/jpeg;base64,". Standard and URL-safe alphabets,
// padded or not, are accepted.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, errors.New("malformed data URL")
		}
		s = s[idx+1:]
	}
	if s == "" {
		return nil, ErrEmptyImage
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("invalid base64 image data")
}

// Resize scales img to fit within maxSize (width or height) while keeping the
// aspect ratio. Images already within bounds are returned unchanged.
func Resize(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(int(float64(height)*float64(maxSize)/float64(width)), 1)
	} else {
		newHeight = maxSize
		newWidth = max(int(float64(width)*float64(maxSize)/float64(height)), 1)
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// EncodeJPEG encodes img as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
