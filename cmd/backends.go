package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// newExtractor creates the face extraction client from config.
func newExtractor(cfg *config.Config) *extractor.Client {
	return extractor.NewClient(cfg.Embedding.URL, cfg.Embedding.Timeout)
}

// connectDatabase initializes the PostgreSQL backend when DATABASE_URL is set.
// It returns false when no database is configured.
func connectDatabase(ctx context.Context, cfg *config.Config) (bool, error) {
	if cfg.Database.URL == "" {
		return false, nil
	}
	if database.IsInitialized() {
		return true, nil
	}
	if err := postgres.Initialize(ctx, &cfg.Database); err != nil {
		return false, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return true, nil
}

// requireDatabase initializes the PostgreSQL backend or fails.
func requireDatabase(ctx context.Context, cfg *config.Config) error {
	ok, err := connectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	if !ok {
		return database.ErrNotInitialized
	}
	return nil
}

// loadGallery reads the local gallery file, falling back to the database
// mirror when the file is missing and a database is configured.
func loadGallery(ctx context.Context, cfg *config.Config) (*gallery.Gallery, error) {
	g, err := gallery.NewFileStore(cfg.Paths.GalleryPath).Load()
	if err == nil || !errors.Is(err, gallery.ErrGalleryNotFound) {
		return g, err
	}

	ok, dbErr := connectDatabase(ctx, cfg)
	if dbErr != nil || !ok {
		return nil, err
	}
	reader, dbErr := database.GetGalleryReader(ctx)
	if dbErr != nil {
		return nil, err
	}
	g, dbErr = reader.LoadGallery(ctx)
	if dbErr != nil {
		if !errors.Is(dbErr, gallery.ErrGalleryNotFound) {
			logging.Warn(logging.Fields{"error": dbErr}, "failed to load gallery from database")
		}
		return nil, err
	}
	logging.Info(logging.Fields{"students": g.Len()}, "gallery loaded from database")
	return g, nil
}
