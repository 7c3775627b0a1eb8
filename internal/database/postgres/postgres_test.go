//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, cleanup
}

var (
	asha  = roster.Identity{RegNo: "101", Name: "Asha", Branch: "ECE", Session: "2023-2027"}
	bala  = roster.Identity{RegNo: "102", Name: "Bala", Branch: "ECE", Session: "2023-2027"}
	kiran = roster.Identity{RegNo: "7", Name: "Kiran", Branch: "Unknown", Session: "Unknown"}
)

func TestGalleryRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewGalleryRepository(pool)

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.LoadGallery(ctx); !errors.Is(err, gallery.ErrGalleryNotFound) {
			t.Fatalf("expected ErrGalleryNotFound, got %v", err)
		}
	})

	g := gallery.New()
	g.Model = "buffalo_l"
	g.BuiltAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mustAdd := func(id roster.Identity, d facematch.Descriptor) {
		if err := g.Add(id, d); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	mustAdd(bala, facematch.Descriptor{1.0000000001, 0, 0})
	mustAdd(asha, facematch.Descriptor{0.123456789012, 0.5, -0.25})
	mustAdd(asha, facematch.Descriptor{0, 0.1, 0})
	mustAdd(kiran, facematch.Descriptor{0, 0, 3})

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := repo.SaveGallery(ctx, g); err != nil {
			t.Fatalf("SaveGallery: %v", err)
		}

		got, err := repo.LoadGallery(ctx)
		if err != nil {
			t.Fatalf("LoadGallery: %v", err)
		}
		if got.Model != g.Model || got.Dim != g.Dim || !got.BuiltAt.Equal(g.BuiltAt) {
			t.Errorf("metadata mismatch: %+v", got)
		}
		if got.Len() != 3 {
			t.Fatalf("expected 3 students, got %d", got.Len())
		}
		for i, e := range g.Entries {
			if got.Entries[i].Identity != e.Identity {
				t.Errorf("entry %d identity = %v, want %v", i, got.Entries[i].Identity, e.Identity)
			}
			for j, d := range e.Descriptors {
				if facematch.Distance(d, got.Entries[i].Descriptors[j]) > 1e-6 {
					t.Errorf("entry %d descriptor %d not preserved", i, j)
				}
			}
		}
	})

	t.Run("CountStudents", func(t *testing.T) {
		n, err := repo.CountStudents(ctx)
		if err != nil {
			t.Fatalf("CountStudents: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3, got %d", n)
		}
	})

	t.Run("FindNearest", func(t *testing.T) {
		got, err := repo.FindNearest(ctx, facematch.Descriptor{0, 0.1, 0}, 2)
		if err != nil {
			t.Fatalf("FindNearest: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 results, got %d", len(got))
		}
		if got[0].Identity != asha {
			t.Errorf("expected nearest %v, got %v", asha, got[0].Identity)
		}
		if got[0].Distance > 1e-6 {
			t.Errorf("expected zero distance, got %f", got[0].Distance)
		}
	})

	t.Run("Replace", func(t *testing.T) {
		small := gallery.New()
		if err := small.Add(kiran, facematch.Descriptor{1, 1}); err != nil {
			t.Fatal(err)
		}
		if err := repo.SaveGallery(ctx, small); err != nil {
			t.Fatalf("SaveGallery: %v", err)
		}
		got, err := repo.LoadGallery(ctx)
		if err != nil {
			t.Fatalf("LoadGallery: %v", err)
		}
		if got.Len() != 1 || got.Dim != 2 {
			t.Errorf("expected replaced gallery, got %d students dim %d", got.Len(), got.Dim)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewAttendanceRepository(pool)
	ece := roster.Cohort{Branch: "ECE", Session: "2023-2027"}

	report := func(ts time.Time) *attendance.Report {
		return &attendance.Report{
			Cohort:        ece,
			Timestamp:     ts,
			Tolerance:     0.5,
			FacesDetected: 2,
			FacesMatched:  1,
			Rows: []attendance.Row{
				{Identity: asha, Status: attendance.Present, Timestamp: ts},
				{Identity: bala, Status: attendance.Absent, Timestamp: ts},
			},
		}
	}

	older := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := repo.SaveRun(ctx, database.NewAttendanceRun("run-1", "group/1.jpg", report(older))); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}

		got, err := repo.GetRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if got == nil {
			t.Fatal("expected run, got nil")
		}
		if got.Cohort != ece || got.PhotoPath != "group/1.jpg" || !got.TakenAt.Equal(older) {
			t.Errorf("unexpected run header: %+v", got)
		}
		if len(got.Records) != 2 || got.Records[0].Status != attendance.Present || got.Records[1].Identity != bala {
			t.Errorf("unexpected records: %+v", got.Records)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.GetRun(ctx, "nope")
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("ListRuns", func(t *testing.T) {
		if err := repo.SaveRun(ctx, database.NewAttendanceRun("run-2", "", report(newer))); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}

		runs, err := repo.ListRuns(ctx, ece, 10)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 2 || runs[0].ID != "run-2" {
			t.Errorf("expected newest first, got %+v", runs)
		}

		runs, err = repo.ListRuns(ctx, roster.Cohort{Branch: "EEE", Session: "2022-2026"}, 10)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("expected no runs for other cohort, got %d", len(runs))
		}
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 applied migrations, got %v", versions)
	}
}
