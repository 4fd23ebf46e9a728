package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/extractor"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{MaxUploadSize: 10 << 20},
		Match:     config.MatchConfig{Tolerance: facematch.DefaultTolerance, Strategy: "first"},
		Extractor: config.ExtractorConfig{Timeout: time.Second},
	}
}

// staticProvider serves a fixed gallery
type staticProvider struct {
	result gallery.LoadResult
	calls  int
}

func (p *staticProvider) Load(_ context.Context) gallery.LoadResult {
	p.calls++
	return p.result
}

func (p *staticProvider) Refresh(ctx context.Context) gallery.LoadResult {
	return p.Load(ctx)
}

func providerOf(entries ...facematch.Entry) *staticProvider {
	return &staticProvider{result: gallery.LoadResult{Gallery: facematch.Gallery(entries), Source: "file"}}
}

// extractorReturning creates an extractor that always yields the given embeddings
func extractorReturning(embeddings ...facematch.Embedding) extractor.Extractor {
	return extractor.Func(func(_ context.Context, _ image.Image) ([]facematch.Embedding, error) {
		return embeddings, nil
	})
}

// extractorFailing creates an extractor that always fails with err
func extractorFailing(err error) extractor.Extractor {
	return extractor.Func(func(_ context.Context, _ image.Image) ([]facematch.Embedding, error) {
		return nil, err
	})
}

// testPNG encodes a small solid image
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// oversizedPNG returns a PNG header declaring 20000x20000 pixels with no pixel data
func oversizedPNG() []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 20000)
	binary.BigEndian.PutUint32(ihdr[4:8], 20000)
	ihdr[8] = 8

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

// multipartRequest builds a POST /recognize request uploading data under field
func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "capture.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(data)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/recognize", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// jsonImageRequest builds a POST /recognize request with a base64 image
func jsonImageRequest(t *testing.T, prefix string, data []byte) *http.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"image": prefix + base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/recognize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertReason checks success=false and the reason of a recognition response
func assertReason(t *testing.T, recorder *httptest.ResponseRecorder, expected string) map[string]any {
	t.Helper()
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["success"] != false {
		t.Errorf("expected success false, got %v", result["success"])
	}
	if result["reason"] != expected {
		t.Errorf("expected reason '%s', got '%v'", expected, result["reason"])
	}
	return result
}
