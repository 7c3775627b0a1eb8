// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// MockGalleryWriter is a mock implementation of database.GalleryWriter
type MockGalleryWriter struct {
	mu      sync.RWMutex
	gallery *gallery.Gallery

	// Error injection
	SaveError        error
	LoadError        error
	CountError       error
	FindNearestError error

	SaveCalls int
}

// NewMockGalleryWriter creates a new mock gallery writer
func NewMockGalleryWriter() *MockGalleryWriter {
	return &MockGalleryWriter{}
}

// SaveGallery stores the gallery
func (m *MockGalleryWriter) SaveGallery(ctx context.Context, g *gallery.Gallery) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gallery = g
	m.SaveCalls++
	return nil
}

// LoadGallery returns the stored gallery
func (m *MockGalleryWriter) LoadGallery(ctx context.Context) (*gallery.Gallery, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gallery == nil {
		return nil, gallery.ErrGalleryNotFound
	}
	return m.gallery, nil
}

// CountStudents returns the number of stored students
func (m *MockGalleryWriter) CountStudents(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gallery == nil {
		return 0, nil
	}
	return m.gallery.Len(), nil
}

// FindNearest ranks stored students by exact distance
func (m *MockGalleryWriter) FindNearest(ctx context.Context, query facematch.Descriptor, limit int) ([]database.NearestStudent, error) {
	if m.FindNearestError != nil {
		return nil, m.FindNearestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gallery == nil {
		return nil, nil
	}

	out := make([]database.NearestStudent, 0, m.gallery.Len())
	for _, e := range m.gallery.Entries {
		out = append(out, database.NearestStudent{
			Identity: e.Identity,
			Distance: facematch.MinDistance(query, e.Descriptors),
		})
	}
	slices.SortFunc(out, func(a, b database.NearestStudent) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), roster.Compare(a.Identity, b.Identity))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockAttendanceWriter is a mock implementation of database.AttendanceWriter
type MockAttendanceWriter struct {
	mu   sync.RWMutex
	runs []database.AttendanceRun

	// Error injection
	SaveError error
	GetError  error
	ListError error
}

// NewMockAttendanceWriter creates a new mock attendance writer
func NewMockAttendanceWriter() *MockAttendanceWriter {
	return &MockAttendanceWriter{}
}

// SaveRun stores a run, replacing one with the same ID
func (m *MockAttendanceWriter) SaveRun(ctx context.Context, run *database.AttendanceRun) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = slices.DeleteFunc(m.runs, func(r database.AttendanceRun) bool { return r.ID == run.ID })
	m.runs = append(m.runs, *run)
	return nil
}

// GetRun retrieves a run by ID
func (m *MockAttendanceWriter) GetRun(ctx context.Context, id string) (*database.AttendanceRun, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runs {
		if r.ID == id {
			run := r
			return &run, nil
		}
	}
	return nil, nil
}

// ListRuns returns runs for the cohort, newest first
func (m *MockAttendanceWriter) ListRuns(ctx context.Context, cohort roster.Cohort, limit int) ([]database.AttendanceRun, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.AttendanceRun
	for _, r := range m.runs {
		if cohort.IsZero() || r.Cohort == cohort {
			run := r
			run.Records = nil
			out = append(out, run)
		}
	}
	slices.SortStableFunc(out, func(a, b database.AttendanceRun) int {
		return b.TakenAt.Compare(a.TakenAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Runs returns every stored run
func (m *MockAttendanceWriter) Runs() []database.AttendanceRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.runs)
}

var (
	_ database.GalleryWriter    = (*MockGalleryWriter)(nil)
	_ database.AttendanceWriter = (*MockAttendanceWriter)(nil)
)
