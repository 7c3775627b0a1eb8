package gallery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Sample is one reference image of an identity.
type Sample struct {
	Identity roster.Identity
	Path     string
}

// ScanFaces walks the faces directory. Each subdirectory is one identity named
// by the folder key convention and its image files are the samples. Loose files
// are ignored. Folders with malformed keys and non-image files are skipped with
// a warning. Folders and files are visited in name order.
func ScanFaces(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read faces directory: %w", err)
	}

	var samples []Sample
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := roster.ParseKey(entry.Name())
		if err != nil {
			logging.Warn(logging.Fields{"folder": entry.Name(), "error": err}, "skipping folder with malformed key")
			continue
		}

		folder := filepath.Join(dir, entry.Name())
		files, err := os.ReadDir(folder)
		if err != nil {
			logging.Warn(logging.Fields{"folder": folder, "error": err}, "failed to read student folder")
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if !extractor.IsImageFile(f.Name()) {
				logging.Warn(logging.Fields{"path": filepath.Join(folder, f.Name())}, "skipping non-image file")
				continue
			}
			samples = append(samples, Sample{Identity: id, Path: filepath.Join(folder, f.Name())})
		}
	}
	return samples, nil
}

// Roster returns the distinct identities of the samples in first-seen order.
func Roster(samples []Sample) []roster.Identity {
	seen := make(map[string]bool)
	var ids []roster.Identity
	for _, s := range samples {
		key := s.Identity.Key()
		if !seen[key] {
			seen[key] = true
			ids = append(ids, s.Identity)
		}
	}
	return ids
}
