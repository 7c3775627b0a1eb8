package postgres

import (
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 embedded migrations, got %d", len(migrations))
	}
	if migrations[0].version != "001_gallery.sql" || migrations[1].version != "002_attendance.sql" {
		t.Errorf("unexpected order: %s, %s", migrations[0].version, migrations[1].version)
	}
	for _, m := range migrations {
		if len(m.checksum) != 64 {
			t.Errorf("%s: expected hex sha256 checksum, got %q", m.version, m.checksum)
		}
		if m.sql == "" {
			t.Errorf("%s: empty sql", m.version)
		}
	}
}

func TestLoadMigrations_SortsAndIgnoresOtherFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql":  {Data: []byte("SELECT 10;")},
		"migrations/002_second.sql": {Data: []byte("SELECT 2;")},
		"migrations/README.md":      {Data: []byte("notes")},
	}

	migrations, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].version != "002_second.sql" {
		t.Errorf("expected 002_second.sql first, got %s", migrations[0].version)
	}
}

func TestLoadMigrations_ChecksumTracksContent(t *testing.T) {
	a, err := loadMigrations(fstest.MapFS{"migrations/001.sql": {Data: []byte("SELECT 1;")}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := loadMigrations(fstest.MapFS{"migrations/001.sql": {Data: []byte("SELECT 2;")}})
	if err != nil {
		t.Fatal(err)
	}
	if a[0].checksum == b[0].checksum {
		t.Error("expected different checksums for different content")
	}
}
