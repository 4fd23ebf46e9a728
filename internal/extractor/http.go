package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-recognizer/internal/facematch"
	"github.com/kozaktomas/face-recognizer/internal/imaging"
)

const (
	defaultURL      = "http://localhost:8000"
	faceEndpoint    = "/embed/face"
	maxResponseSize = 16 << 20
	requestIDHeader = "X-Request-ID"
)

// FaceDetection is a single detected face as reported by the embedding server.
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse is the body returned by the face embedding endpoint.
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// HTTPClient extracts embeddings by posting images to an embedding server.
type HTTPClient struct {
	baseURL      string
	timeout      time.Duration
	maxImageSize int
	client       *http.Client
}

// NewHTTPClient creates a client for the embedding server at baseURL.
// timeout bounds each call (0 means only the caller's context applies) and
// images larger than maxImageSize on either edge are downscaled before upload.
func NewHTTPClient(baseURL string, timeout time.Duration, maxImageSize int) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &HTTPClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		timeout:      timeout,
		maxImageSize: maxImageSize,
		client:       &http.Client{},
	}
}

// Extract downsizes img, sends it to the server and returns the embeddings in
// the order the server reported the faces.
func (c *HTTPClient) Extract(ctx context.Context, img image.Image) ([]facematch.Embedding, error) {
	data, err := imaging.EncodeJPEG(imaging.Resize(img, c.maxImageSize))
	if err != nil {
		return nil, err
	}

	resp, err := c.ComputeFaceEmbeddings(ctx, data)
	if err != nil {
		return nil, err
	}

	embeddings := make([]facematch.Embedding, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if len(face.Embedding) == 0 {
			continue
		}
		embeddings = append(embeddings, facematch.Embedding(face.Embedding))
	}
	return embeddings, nil
}

// ComputeFaceEmbeddings posts encoded image bytes to the face endpoint.
func (c *HTTPClient) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := c.postMultipartImage(ctx, faceEndpoint, imageData)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}

// postMultipartImage sends imageData as the "file" form field and returns the response body.
func (c *HTTPClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(requestIDHeader, requestID(ctx))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// requestID reuses the inbound chi request ID so both services log the same value.
func requestID(ctx context.Context) string {
	if id := chiMiddleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
