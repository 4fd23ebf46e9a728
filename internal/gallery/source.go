package gallery

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptySource is the failure reason when a source worked but yielded no entries.
	ErrEmptySource = errors.New("source yielded no entries")

	// ErrSourceDisabled is the failure reason for a source turned off by configuration.
	ErrSourceDisabled = errors.New("source disabled")
)

// Outcome is the result of loading one source: either Entries or Failed.
type Outcome struct {
	Entries facematch.Gallery
	Err     error
}

// Entries returns a successful outcome. An empty gallery is reported as
// Failed(ErrEmptySource) so the chain moves on.
func Entries(g facematch.Gallery) Outcome {
	if len(g) == 0 {
		return Failed(ErrEmptySource)
	}
	return Outcome{Entries: g}
}

// Failed returns an outcome carrying why the source produced nothing.
func Failed(reason error) Outcome {
	return Outcome{Err: reason}
}

// OK reports whether the outcome has entries.
func (o Outcome) OK() bool {
	return o.Err == nil && len(o.Entries) > 0
}

// Source is one place known faces can come from.
type Source interface {
	Name() string
	Load(ctx context.Context) Outcome
}

// keepConsistent drops entries that are empty or whose dimension differs from
// the first usable entry, logging each one.
func keepConsistent(g facematch.Gallery, log logrus.FieldLogger, source string) facematch.Gallery {
	out := make(facematch.Gallery, 0, len(g))
	dim := 0
	for _, e := range g {
		if len(e.Embedding) == 0 {
			log.WithFields(logrus.Fields{"source": source, "name": e.Name}).Warn("skipping entry with empty encoding")
			continue
		}
		if dim == 0 {
			dim = len(e.Embedding)
		}
		if len(e.Embedding) != dim {
			log.WithFields(logrus.Fields{
				"source":   source,
				"name":     e.Name,
				"expected": dim,
				"got":      len(e.Embedding),
			}).Warn("skipping entry with mismatched encoding length")
			continue
		}
		out = append(out, e)
	}
	return out
}
