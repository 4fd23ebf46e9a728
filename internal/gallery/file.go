package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/logging"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// galleryFile is the on-disk layout: two index-aligned arrays.
type galleryFile struct {
	Names     []string    `json:"names" yaml:"names"`
	Encodings [][]float64 `json:"encodings" yaml:"encodings,flow"`
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadFile decodes a gallery file. The format is chosen by extension:
// .yaml/.yml is YAML, anything else is JSON. If the arrays differ in length
// the longer one is truncated and truncated reports how many entries were lost.
func ReadFile(path string) (g facematch.Gallery, truncated int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading gallery file: %w", err)
	}

	var f galleryFile
	if isYAML(path) {
		err = yaml.Unmarshal(data, &f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("decoding gallery file %s: %w", path, err)
	}

	n := min(len(f.Names), len(f.Encodings))
	truncated = max(len(f.Names), len(f.Encodings)) - n

	g = make(facematch.Gallery, n)
	for i := range n {
		g[i] = facematch.Entry{Name: f.Names[i], Embedding: f.Encodings[i]}
	}
	return g, truncated, nil
}

// WriteFile encodes g to path, creating parent directories as needed.
func WriteFile(path string, g facematch.Gallery) error {
	f := galleryFile{
		Names:     g.Names(),
		Encodings: make([][]float64, len(g)),
	}
	for i := range g {
		f.Encodings[i] = g[i].Embedding
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(&f)
	} else {
		data, err = json.MarshalIndent(&f, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding gallery: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating gallery directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // gallery file is not secret
		return fmt.Errorf("writing gallery file: %w", err)
	}
	return nil
}

// FileSource loads the pre-serialized gallery file.
type FileSource struct {
	path string
	log  logrus.FieldLogger
}

// NewFileSource creates a source reading path.
func NewFileSource(path string, log logrus.FieldLogger) *FileSource {
	return &FileSource{path: path, log: logging.OrDiscard(log)}
}

func (s *FileSource) Name() string { return "file" }

// Load reads the file. Missing or unreadable files are logged and reported as Failed.
func (s *FileSource) Load(_ context.Context) Outcome {
	if s.path == "" {
		return Failed(ErrSourceDisabled)
	}

	g, truncated, err := ReadFile(s.path)
	if err != nil {
		s.log.WithFields(logrus.Fields{"path": s.path, "error": err}).Warn("failed to load gallery file")
		return Failed(err)
	}
	if truncated > 0 {
		s.log.WithFields(logrus.Fields{"path": s.path, "dropped": truncated}).
			Warn("gallery file names and encodings differ in length, extra items ignored")
	}

	return Entries(keepConsistent(g, s.log, s.Name()))
}
