package gallery

import (
	"context"

	"github.com/kozaktomas/face-recognizer/internal/database"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/sirupsen/logrus"
)

// DatabaseSource loads known faces from the relational store.
type DatabaseSource struct {
	reader database.EncodingReader
	log    logrus.FieldLogger
}

// NewDatabaseSource creates a source over reader.
func NewDatabaseSource(reader database.EncodingReader, log logrus.FieldLogger) *DatabaseSource {
	return &DatabaseSource{reader: reader, log: logging.OrDiscard(log)}
}

func (s *DatabaseSource) Name() string { return "database" }

// Load queries all rows and parses their encodings. Rows that fail to parse are
// logged and skipped; connection or query errors are reported as Failed.
func (s *DatabaseSource) Load(ctx context.Context) Outcome {
	rows, err := s.reader.ListEncodings(ctx)
	if err != nil {
		s.log.WithField("error", err).Warn("failed to load encodings from database")
		return Failed(err)
	}

	g := make(facematch.Gallery, 0, len(rows))
	for _, row := range rows {
		embedding, err := ParseEncoding(row.Encoding)
		if err != nil {
			s.log.WithFields(logrus.Fields{"name": row.Name, "error": err}).Warn("skipping malformed encoding")
			continue
		}
		g = append(g, facematch.Entry{Name: row.Name, Embedding: embedding})
	}

	return Entries(keepConsistent(g, s.log, s.Name()))
}
