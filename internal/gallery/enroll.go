package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Enroll copies reference images into the identity's folder under facesDir,
// numbering them after any images already there (1.jpg, 2.jpg, ...). Every
// image is decoded first so unreadable files never reach the gallery. It
// returns the written paths.
func Enroll(facesDir string, id roster.Identity, images []string) ([]string, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images given for %s", id)
	}

	data := make([][]byte, len(images))
	for i, path := range images {
		if !extractor.IsImageFile(path) {
			return nil, fmt.Errorf("%w: %s is not a supported image file", extractor.ErrUnreadableImage, path)
		}
		b, err := os.ReadFile(path) //nolint:gosec // paths are given by the operator
		if err != nil {
			return nil, fmt.Errorf("%w: %w", extractor.ErrUnreadableImage, err)
		}
		if _, err := extractor.PrepareImage(b); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		data[i] = b
	}

	folder := filepath.Join(facesDir, id.Key())
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create student folder: %w", err)
	}
	next, err := nextSampleNumber(folder)
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, len(images))
	for i, path := range images {
		dst := filepath.Join(folder, strconv.Itoa(next+i)+strings.ToLower(filepath.Ext(path)))
		if err := renameio.WriteFile(dst, data[i], 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

// nextSampleNumber returns one more than the highest numbered image in folder.
func nextSampleNumber(folder string) (int, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0, fmt.Errorf("failed to read student folder: %w", err)
	}
	highest := 0
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if n, err := strconv.Atoi(name); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}
