package database

import (
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/face-recognizer/internal/config"
)

// mysqlDSN builds a MySQL/MariaDB DSN. Timeouts are bounded by cfg.Timeout.
func mysqlDSN(cfg *config.DatabaseConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Name
	c.ParseTime = true
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
		c.ReadTimeout = cfg.Timeout
	}
	return c.FormatDSN()
}
