package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Gallery   GalleryConfig
	Match     MatchConfig
	Extractor ExtractorConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           int      // PYTHON_SERVICE_PORT, kept for compatibility with existing clients
	MaxUploadSize  int64    // bytes accepted for a multipart upload
	AllowedOrigins []string // empty allows any origin
}

type DatabaseConfig struct {
	Enabled  bool   // USE_DB_ENCODINGS
	Driver   string // "mysql" (default) or "postgres"
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Table    string // table holding name / face_encoding columns
	SSLMode  string // postgres only
	Timeout  time.Duration
}

type GalleryConfig struct {
	FilePath string        // fallback gallery file (.json, .yaml, .yml)
	CacheTTL time.Duration // 0 reloads the gallery on every request
}

type MatchConfig struct {
	Tolerance float64
	Strategy  string // "first" or "closest"
}

type ExtractorConfig struct {
	URL          string
	Timeout      time.Duration
	MaxImageSize int // longest edge sent to the extractor
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
	File   string // optional rotating log file
}

type RateLimitConfig struct {
	RPS   float64 // 0 disables rate limiting
	Burst int
}

// Driver names accepted in DB_DRIVER.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

func defaults(v *viper.Viper) {
	v.SetDefault("use_db_encodings", false)
	v.SetDefault("db_driver", DriverMySQL)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "")
	v.SetDefault("db_table", constants.DefaultTable)
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_timeout", constants.DefaultDBTimeout.String())
	v.SetDefault("gallery_file", "encodings/gallery.json")
	v.SetDefault("gallery_cache_ttl", "0s")
	v.SetDefault("face_match_tolerance", constants.DefaultTolerance)
	v.SetDefault("match_strategy", "first")
	v.SetDefault("python_service_port", constants.DefaultServicePort)
	v.SetDefault("service_host", "0.0.0.0")
	v.SetDefault("max_upload_size", constants.DefaultMaxUploadSize)
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("extractor_url", "http://localhost:8000")
	v.SetDefault("extractor_timeout", constants.DefaultExtractorTimeout.String())
	v.SetDefault("max_image_size", constants.MaxImageSize)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("rate_limit_rps", 0)
	v.SetDefault("rate_limit_burst", constants.DefaultRateLimitBurst)
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	return v
}

// Load builds the configuration from environment variables.
// Invalid values fall back to their defaults.
func Load() *Config {
	return fromViper(newViper())
}

// LoadFile reads a config file (any format viper understands) and lets
// environment variables override it.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	driver := strings.ToLower(strings.TrimSpace(v.GetString("db_driver")))
	if driver != DriverPostgres {
		driver = DriverMySQL
	}
	defaultPort := constants.DefaultMySQLPort
	if driver == DriverPostgres {
		defaultPort = constants.DefaultPostgresPort
	}

	return &Config{
		Server: ServerConfig{
			Host:           v.GetString("service_host"),
			Port:           positiveInt(v, "python_service_port", constants.DefaultServicePort),
			MaxUploadSize:  int64(positiveInt(v, "max_upload_size", constants.DefaultMaxUploadSize)),
			AllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		},
		Database: DatabaseConfig{
			Enabled:  boolOr(v, "use_db_encodings", false),
			Driver:   driver,
			Host:     v.GetString("db_host"),
			Port:     positiveInt(v, "db_port", defaultPort),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
			Table:    v.GetString("db_table"),
			SSLMode:  v.GetString("db_sslmode"),
			Timeout:  durationOr(v, "db_timeout", constants.DefaultDBTimeout),
		},
		Gallery: GalleryConfig{
			FilePath: v.GetString("gallery_file"),
			CacheTTL: durationOr(v, "gallery_cache_ttl", 0),
		},
		Match: MatchConfig{
			Tolerance: nonNegativeFloat(v, "face_match_tolerance", constants.DefaultTolerance),
			Strategy:  v.GetString("match_strategy"),
		},
		Extractor: ExtractorConfig{
			URL:          v.GetString("extractor_url"),
			Timeout:      durationOr(v, "extractor_timeout", constants.DefaultExtractorTimeout),
			MaxImageSize: positiveInt(v, "max_image_size", constants.MaxImageSize),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
			File:   v.GetString("log_file"),
		},
		RateLimit: RateLimitConfig{
			RPS:   nonNegativeFloat(v, "rate_limit_rps", 0),
			Burst: positiveInt(v, "rate_limit_burst", constants.DefaultRateLimitBurst),
		},
	}
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// positiveInt reads a key as a positive integer.
// Returns the default value if the key is unset, empty, or invalid.
func positiveInt(v *viper.Viper, key string, defaultVal int) int {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func nonNegativeFloat(v *viper.Viper, key string, defaultVal float64) float64 {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func boolOr(v *viper.Viper, key string, defaultVal bool) bool {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// durationOr accepts Go duration strings ("5s", "1m30s") or plain seconds ("5").
func durationOr(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
