package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/kozaktomas/face-recognizer/internal/config"
	_ "github.com/lib/pq"
)

// postgresDSN builds a PostgreSQL connection URL.
func postgresDSN(cfg *config.DatabaseConfig) string {
	q := url.Values{}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	if cfg.Timeout > 0 {
		// connect_timeout is whole seconds, minimum 1
		secs := max(int(cfg.Timeout.Seconds()), 1)
		q.Set("connect_timeout", strconv.Itoa(secs))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
