// Package constants provides shared defaults used across the codebase.
package constants

import "time"

// Service defaults
const (
	// DefaultServicePort is the port existing webcam clients expect the service on
	DefaultServicePort = 5001

	// DefaultMaxUploadSize is the largest accepted request body in bytes
	DefaultMaxUploadSize = 10 << 20

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM
	ShutdownTimeout = 30 * time.Second
)

// Database defaults
const (
	DefaultMySQLPort    = 3306
	DefaultPostgresPort = 5432

	// DefaultTable is the table holding name and face_encoding columns
	DefaultTable = "users"

	// DefaultDBTimeout bounds one gallery load from the database
	DefaultDBTimeout = 5 * time.Second
)

// Face matching constants
const (
	// DefaultTolerance is the default maximum Euclidean distance for a match.
	// Lower values = stricter matching
	DefaultTolerance = 0.6
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the extractor
	MaxImageSize = 1920

	// MaxImagePixels bounds width*height of an uploaded image before its pixels are decoded
	MaxImagePixels = 40_000_000

	// DefaultExtractorTimeout bounds one embedding extraction
	DefaultExtractorTimeout = 15 * time.Second

	// DefaultConcurrency is the default number of images encoded in parallel
	DefaultConcurrency = 4
)

// Rate limiting constants
const (
	DefaultRateLimitBurst = 10

	// RateLimitIdleTTL is how long an unused per-IP bucket is kept
	RateLimitIdleTTL = 3 * time.Minute
)
