// Package facematch compares a query face embedding against a gallery of known faces.
// It holds the data model shared by the loader, the HTTP handler and the CLI.
package facematch

// Embedding is a face feature vector produced by the external extractor.
// Dimensionality is decided by the extractor (typically 128).
type Embedding []float64

// Entry pairs a display name with one embedding. Names are not guaranteed unique.
type Entry struct {
	Name      string
	Embedding Embedding
}

// Gallery is an ordered list of known faces. Order follows the source
// (database row order or file array order). An empty gallery is valid.
type Gallery []Entry

// Names returns the entry names in gallery order.
func (g Gallery) Names() []string {
	names := make([]string, len(g))
	for i := range g {
		names[i] = g[i].Name
	}
	return names
}

// Embeddings returns the entry embeddings in gallery order.
func (g Gallery) Embeddings() []Embedding {
	embeddings := make([]Embedding, len(g))
	for i := range g {
		embeddings[i] = g[i].Embedding
	}
	return embeddings
}

// ResultKind identifies which outcome a Result carries.
type ResultKind string

const (
	KindNoImage        ResultKind = "no_image"
	KindNoFace         ResultKind = "no_face"
	KindNoKnownFaces   ResultKind = "no_known_faces"
	KindLowConfidence  ResultKind = "low_confidence"
	KindMatched        ResultKind = "matched"
	KindTimeout        ResultKind = "timeout"           // extractor exceeded its deadline
	KindExtractFailure ResultKind = "extraction_failed" // extractor unreachable or invalid response
)

// Result is the outcome of a single recognition request.
// Only the fields belonging to Kind are meaningful.
type Result struct {
	Kind ResultKind

	// KindNoKnownFaces
	EmbeddingLength int

	// KindLowConfidence
	MinDistance float64

	// KindMatched
	Name       string
	Distance   float64
	Confidence float64
}

// NoImage is returned when the request carried no decodable image.
func NoImage() Result {
	return Result{Kind: KindNoImage}
}

// NoFaceDetected is returned when the extractor found no face.
func NoFaceDetected() Result {
	return Result{Kind: KindNoFace}
}

// NoKnownFaces is returned when the gallery is empty.
func NoKnownFaces(embeddingLength int) Result {
	return Result{Kind: KindNoKnownFaces, EmbeddingLength: embeddingLength}
}

// LowConfidence is returned when no entry is within tolerance.
func LowConfidence(minDistance float64) Result {
	return Result{Kind: KindLowConfidence, MinDistance: minDistance}
}

// Matched is returned for an entry within tolerance.
// Confidence is 1 - distance and is not clamped.
func Matched(name string, distance float64) Result {
	return Result{
		Kind:       KindMatched,
		Name:       name,
		Distance:   distance,
		Confidence: 1 - distance,
	}
}

// Timeout is returned when embedding extraction did not finish in time.
func Timeout() Result {
	return Result{Kind: KindTimeout}
}

// ExtractionFailed is returned when the extractor could not produce a usable answer.
func ExtractionFailed() Result {
	return Result{Kind: KindExtractFailure}
}

// Success reports whether the result is a match.
func (r Result) Success() bool {
	return r.Kind == KindMatched
}
