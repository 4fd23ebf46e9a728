package gallery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/kozaktomas/face-recognizer/internal/extractor"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// ImageFiles lists the images under dir, sorted by path so the gallery
// order is stable between runs.
func ImageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing images in %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

// NameFromPath derives the display name from an image path: its base name
// without extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuildOptions controls a gallery build.
type BuildOptions struct {
	Concurrency int
	// OnFile is called once per processed file, from any goroutine.
	OnFile func(path string)
}

// BuildReport lists the files that did not contribute an entry.
type BuildReport struct {
	Files  int
	NoFace []string
	Failed map[string]error
}

// Build extracts the first face of each file and returns the entries in
// file order. Files without a face or that fail are left out and reported.
// Files not yet started when ctx is done fail with ctx.Err().
func Build(ctx context.Context, files []string, ext extractor.Extractor, opts BuildOptions) (facematch.Gallery, BuildReport) {
	concurrency := max(opts.Concurrency, 1)

	type result struct {
		entry  *facematch.Entry
		noFace bool
		err    error
	}
	results := make([]result, len(files))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if opts.OnFile != nil {
				defer opts.OnFile(path)
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = result{err: ctx.Err()}
				return
			}
			if err := ctx.Err(); err != nil {
				results[i] = result{err: err}
				return
			}

			embedding, err := encodeFile(ctx, ext, path)
			switch {
			case err != nil:
				results[i] = result{err: err}
			case embedding == nil:
				results[i] = result{noFace: true}
			default:
				results[i] = result{entry: &facematch.Entry{Name: NameFromPath(path), Embedding: embedding}}
			}
		}()
	}
	wg.Wait()

	g := make(facematch.Gallery, 0, len(files))
	report := BuildReport{Files: len(files), Failed: make(map[string]error)}
	for i, r := range results {
		switch {
		case r.err != nil:
			report.Failed[files[i]] = r.err
		case r.noFace:
			report.NoFace = append(report.NoFace, files[i])
		default:
			g = append(g, *r.entry)
		}
	}
	return g, report
}

// encodeFile returns the first face embedding of the image at path, or nil
// when no face was found.
func encodeFile(ctx context.Context, ext extractor.Extractor, path string) (facematch.Embedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	embeddings, err := ext.Extract(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, nil
	}
	return embeddings[0], nil
}
