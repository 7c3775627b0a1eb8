// Package extractor talks to the face embedding service that localizes faces
// in an image and computes their descriptors.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

const defaultEmbeddingURL = "http://localhost:8000"

// ErrNoFaceDetected is returned by helpers that require at least one face.
var ErrNoFaceDetected = errors.New("no face detected")

// Face is a single detected face.
type Face struct {
	Index      int                  `json:"face_index"`
	Descriptor facematch.Descriptor `json:"embedding"`
	BBox       []float64            `json:"bbox"` // [x1, y1, x2, y2] in pixels of the submitted image
	DetScore   float64              `json:"det_score"`
}

// Result is the extractor output for one image, faces in detection order.
type Result struct {
	Faces []Face
	Model string
}

// Extractor detects faces in an image and computes their descriptors.
type Extractor interface {
	DetectAndEncode(ctx context.Context, imageData []byte) (*Result, error)
}

// Client computes face descriptors using the embedding server.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewClient creates a new embedding server client. A zero timeout disables
// the per-image deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// postMultipartImage posts the image as a multipart form with a MIME type
// detected from its magic bytes.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
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

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectAndEncode detects faces and computes their descriptors.
func (c *Client) DetectAndEncode(ctx context.Context, imageData []byte) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	for i, f := range faceResp.Faces {
		if len(f.Descriptor) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding returned", i)
		}
	}

	return &Result{Faces: faceResp.Faces, Model: faceResp.Model}, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// BMP: 42 4D
	if data[0] == 0x42 && data[1] == 0x4D {
		return "image/bmp"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, imageData []byte) (*Result, error)

// DetectAndEncode calls f.
func (f Func) DetectAndEncode(ctx context.Context, imageData []byte) (*Result, error) {
	return f(ctx, imageData)
}
