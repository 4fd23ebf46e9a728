// Package gallery loads known faces from the configured sources with a
// database-first, file-second fallback chain.
package gallery

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/facematch"
)

// ErrMalformedEncoding is returned when a stored encoding cannot be parsed.
var ErrMalformedEncoding = errors.New("malformed encoding")

// ParseEncoding parses a comma-separated list of floats, e.g. "0.12,-0.03,...".
// Whitespace around values and a single pair of enclosing brackets are tolerated.
func ParseEncoding(s string) (facematch.Embedding, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedEncoding)
	}

	parts := strings.Split(s, ",")
	embedding := make(facematch.Embedding, 0, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %q", ErrMalformedEncoding, i, p)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %d is not finite", ErrMalformedEncoding, i)
		}
		embedding = append(embedding, v)
	}
	return embedding, nil
}

// FormatEncoding is the inverse of ParseEncoding.
func FormatEncoding(e facematch.Embedding) string {
	var b strings.Builder
	for i, v := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}
