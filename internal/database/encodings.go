package database

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-recognizer/internal/config"
)

// EncodingRow is one known face as stored: a name and its comma-separated encoding.
type EncodingRow struct {
	Name     string `db:"name"`
	Encoding string `db:"face_encoding"`
}

// EncodingReader lists stored face encodings.
type EncodingReader interface {
	ListEncodings(ctx context.Context) ([]EncodingRow, error)
}

// EncodingRepository reads encodings from the configured table.
type EncodingRepository struct {
	cfg config.DatabaseConfig
}

// NewEncodingRepository creates a repository for cfg. No connection is made until
// ListEncodings is called.
func NewEncodingRepository(cfg config.DatabaseConfig) *EncodingRepository {
	return &EncodingRepository{cfg: cfg}
}

// ListEncodings connects, reads every row with a non-null encoding in table order,
// and closes the connection. The whole call is bounded by the configured timeout.
func (r *EncodingRepository) ListEncodings(ctx context.Context) ([]EncodingRow, error) {
	if err := validTable(r.cfg.Table); err != nil {
		return nil, err
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	db, err := Connect(ctx, &r.cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	//nolint:gosec // table name validated as a plain identifier
	query := fmt.Sprintf("SELECT COALESCE(name, '') AS name, face_encoding FROM %s WHERE face_encoding IS NOT NULL", r.cfg.Table)

	var rows []EncodingRow
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("querying encodings from %s: %w", r.cfg.Table, err)
	}
	return rows, nil
}
