// Package database reads known face encodings from a relational store.
// Connections are opened per read and closed afterwards; there is no pool
// shared across gallery loads.
package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/kozaktomas/face-recognizer/internal/config"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidTable is returned when the configured table name is not a plain SQL identifier.
var ErrInvalidTable = errors.New("invalid table name")

// DSN builds the driver-specific connection string for cfg.
func DSN(cfg *config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgresDSN(cfg), nil
	case config.DriverMySQL, "":
		return mysqlDSN(cfg), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// driverName maps the configured driver to the registered database/sql driver.
func driverName(cfg *config.DatabaseConfig) string {
	if cfg.Driver == config.DriverPostgres {
		return "postgres"
	}
	return "mysql"
}

// Connect opens a connection and verifies it with a ping.
// The caller owns the returned handle and must close it.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driverName(cfg), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s at %s:%d: %w", cfg.Driver, cfg.Host, cfg.Port, err)
	}

	// One load runs one query.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	return db, nil
}

// validTable checks that name can be interpolated into a query safely.
func validTable(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}
