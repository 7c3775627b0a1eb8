package gallery

import (
	"context"
	"fmt"
)

// Train scans facesDir, builds a fresh gallery and saves it to store. The
// previous gallery is replaced only when the build succeeds.
func Train(ctx context.Context, facesDir string, b *Builder, store *FileStore) (*Gallery, *BuildStats, error) {
	samples, err := ScanFaces(facesDir)
	if err != nil {
		return nil, nil, err
	}

	g, stats, err := b.Build(ctx, samples)
	if err != nil {
		return nil, nil, err
	}

	if err := store.Save(g); err != nil {
		return nil, nil, fmt.Errorf("failed to save gallery: %w", err)
	}
	return g, stats, nil
}
