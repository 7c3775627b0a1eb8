package database

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// GalleryReader provides read-only access to a stored gallery
type GalleryReader interface {
	// LoadGallery returns the stored gallery, or gallery.ErrGalleryNotFound
	LoadGallery(ctx context.Context) (*gallery.Gallery, error)
	// CountStudents returns the number of students with reference descriptors
	CountStudents(ctx context.Context) (int, error)
	// FindNearest returns the students whose closest reference descriptor is
	// nearest to the query, nearest first
	FindNearest(ctx context.Context, query facematch.Descriptor, limit int) ([]NearestStudent, error)
}

// GalleryWriter provides write access to a stored gallery
type GalleryWriter interface {
	GalleryReader

	// SaveGallery replaces the stored gallery with g
	SaveGallery(ctx context.Context, g *gallery.Gallery) error
}

// AttendanceReader provides read-only access to attendance history
type AttendanceReader interface {
	// GetRun retrieves a run by ID, returns nil if not found
	GetRun(ctx context.Context, id string) (*AttendanceRun, error)
	// ListRuns returns the latest runs for a cohort, newest first. A zero
	// cohort lists runs of every cohort.
	ListRuns(ctx context.Context, cohort roster.Cohort, limit int) ([]AttendanceRun, error)
}

// AttendanceWriter provides write access to attendance history
type AttendanceWriter interface {
	AttendanceReader

	// SaveRun stores a run with all its records
	SaveRun(ctx context.Context, run *AttendanceRun) error
}
