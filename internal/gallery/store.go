package gallery

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
)

// FileVersion is the on-disk gallery format written by FileStore.
const FileVersion = 1

var (
	// ErrGalleryNotFound is returned when no gallery has been trained yet.
	ErrGalleryNotFound = errors.New("gallery not found, retrain before matching")
	// ErrGalleryCorrupt is returned when the gallery file cannot be decoded.
	ErrGalleryCorrupt = errors.New("gallery file is corrupt, retrain before matching")
)

// galleryFile is the on-disk envelope.
type galleryFile struct {
	Version int
	Gallery Gallery
}

// FileStore persists a gallery as a single gob file. Writes replace the file
// atomically so concurrent readers never observe a partial gallery.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the gallery file location.
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether a gallery file is present.
func (s *FileStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := os.Stat(s.path)
	return err == nil
}

// Save writes the gallery, replacing any previous one.
func (s *FileStore) Save(g *Gallery) error {
	if err := g.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create gallery directory: %w", err)
	}

	pf, err := renameio.TempFile(dir, s.path)
	if err != nil {
		return fmt.Errorf("failed to create gallery file: %w", err)
	}
	defer pf.Cleanup() //nolint:errcheck // no-op after a successful replace

	if err := gob.NewEncoder(pf).Encode(galleryFile{Version: FileVersion, Gallery: *g}); err != nil {
		return fmt.Errorf("failed to encode gallery: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to write gallery: %w", err)
	}
	return nil
}

// Load reads the gallery.
func (s *FileStore) Load() (*Gallery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrGalleryNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to open gallery: %w", err)
	}
	defer f.Close()

	var file galleryFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGalleryCorrupt, err)
	}
	if file.Version != FileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrGalleryCorrupt, file.Version)
	}

	g := file.Gallery
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGalleryCorrupt, err)
	}
	return &g, nil
}
