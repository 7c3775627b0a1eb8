package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var (
	asha = roster.Identity{RegNo: "101", Name: "Asha", Branch: "ECE", Session: "2023-2027"}
	bala = roster.Identity{RegNo: "102", Name: "Bala", Branch: "ECE", Session: "2023-2027"}
	dev  = roster.Identity{RegNo: "201", Name: "Dev", Branch: "EEE", Session: "2024-2028"}
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Matching: config.MatchingConfig{Tolerance: 0.5, TrainConcurrency: 2},
		Cohorts: config.CohortsConfig{
			Branches: []string{"ECE", "EEE"},
			Sessions: []string{"2023-2027", "2024-2028"},
		},
	}
}

// testConfigWithPaths creates a config whose directories live under a temp dir
func testConfigWithPaths(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Paths = config.PathsConfig{
		FacesDir:       filepath.Join(dir, "faces"),
		GroupPhotosDir: filepath.Join(dir, "group_photos"),
		OutputDir:      filepath.Join(dir, "output"),
		GalleryPath:    filepath.Join(dir, "output", "gallery.gob"),
	}
	return cfg
}

// testGallery builds the gallery used by handler tests
func testGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	g := gallery.New()
	for _, add := range []struct {
		id roster.Identity
		d  facematch.Descriptor
	}{
		{asha, facematch.Descriptor{0, 0}},
		{asha, facematch.Descriptor{0.1, 0}},
		{bala, facematch.Descriptor{1, 0}},
		{dev, facematch.Descriptor{0, 1}},
	} {
		if err := g.Add(add.id, add.d); err != nil {
			t.Fatalf("failed to build gallery: %v", err)
		}
	}
	return g
}

// savedGalleryCache stores the test gallery and returns a cache over it
func savedGalleryCache(t *testing.T, cfg *config.Config) (*GalleryCache, *gallery.FileStore) {
	t.Helper()
	store := gallery.NewFileStore(cfg.Paths.GalleryPath)
	if err := store.Save(testGallery(t)); err != nil {
		t.Fatalf("failed to save gallery: %v", err)
	}
	return NewGalleryCache(store, nil), store
}

// fixedFaces returns an extractor that always detects the given descriptors
func fixedFaces(descriptors ...facematch.Descriptor) extractor.Extractor {
	return extractor.Func(func(context.Context, []byte) (*extractor.Result, error) {
		res := &extractor.Result{Model: "test"}
		for i, d := range descriptors {
			res.Faces = append(res.Faces, extractor.Face{Index: i, Descriptor: d, BBox: []float64{0, 0, 4, 4}})
		}
		return res, nil
	})
}

// testPNG encodes a small blank image
func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart POST with an optional photo and form fields
func multipartRequest(t *testing.T, path string, photo []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "group.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := fw.Write(photo); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
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
