package database

import (
	"context"
	"errors"
)

// ErrNotInitialized is returned when no storage backend has been registered.
var ErrNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	postgresGalleryWriter    func() GalleryWriter
	postgresAttendanceWriter func() AttendanceWriter
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	galleryWriter func() GalleryWriter,
	attendanceWriter func() AttendanceWriter,
) {
	postgresGalleryWriter = galleryWriter
	postgresAttendanceWriter = attendanceWriter
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetGalleryReader returns a GalleryReader from the PostgreSQL backend
func GetGalleryReader(ctx context.Context) (GalleryReader, error) {
	return GetGalleryWriter(ctx)
}

// GetGalleryWriter returns a GalleryWriter from the PostgreSQL backend
func GetGalleryWriter(_ context.Context) (GalleryWriter, error) {
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	if postgresGalleryWriter == nil {
		return nil, errors.New("PostgreSQL gallery writer not registered")
	}
	return postgresGalleryWriter(), nil
}

// GetAttendanceReader returns an AttendanceReader from the PostgreSQL backend
func GetAttendanceReader(ctx context.Context) (AttendanceReader, error) {
	return GetAttendanceWriter(ctx)
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(_ context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	if postgresAttendanceWriter == nil {
		return nil, errors.New("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}

// resetForTest clears registered backends.
func resetForTest() {
	postgresGalleryWriter = nil
	postgresAttendanceWriter = nil
	postgresInitialized = false
}
