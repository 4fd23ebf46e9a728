package gallery

import (
	"context"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/database"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/sirupsen/logrus"
)

// SourceNone is reported when no source yielded entries.
const SourceNone = "none"

// LoadResult is the gallery together with the source it came from.
type LoadResult struct {
	Gallery facematch.Gallery
	Source  string
}

// Provider supplies a gallery for a recognition request.
type Provider interface {
	Load(ctx context.Context) LoadResult
}

// Loader tries its sources in order and returns the first that yields entries.
// It never fails: when every source fails, it returns an empty gallery.
type Loader struct {
	sources []Source
	log     logrus.FieldLogger
}

// NewLoader creates a loader over an explicit source chain.
func NewLoader(log logrus.FieldLogger, sources ...Source) *Loader {
	return &Loader{sources: sources, log: logging.OrDiscard(log)}
}

// NewLoaderFromConfig builds the standard chain: the database source when
// USE_DB_ENCODINGS is on, then the gallery file.
func NewLoaderFromConfig(cfg *config.Config, log logrus.FieldLogger) *Loader {
	var sources []Source
	if cfg.Database.Enabled {
		sources = append(sources, NewDatabaseSource(database.NewEncodingRepository(cfg.Database), log))
	}
	sources = append(sources, NewFileSource(cfg.Gallery.FilePath, log))
	return NewLoader(log, sources...)
}

// Load walks the source chain.
func (l *Loader) Load(ctx context.Context) LoadResult {
	for _, src := range l.sources {
		outcome := src.Load(ctx)
		if outcome.OK() {
			l.log.WithFields(logrus.Fields{"source": src.Name(), "entries": len(outcome.Entries)}).Debug("gallery loaded")
			return LoadResult{Gallery: outcome.Entries, Source: src.Name()}
		}
		l.log.WithFields(logrus.Fields{"source": src.Name(), "reason": outcome.Err}).Debug("gallery source produced no entries")
	}

	l.log.Warn("no gallery source yielded entries, using empty gallery")
	return emptyResult()
}

// Refresh is Load; the uncached loader always reads its sources.
func (l *Loader) Refresh(ctx context.Context) LoadResult {
	return l.Load(ctx)
}
