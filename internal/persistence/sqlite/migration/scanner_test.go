package migration

import (
	"errors"
	"reflect"
	"testing"
	"testing/fstest"
)

func TestScan(t *testing.T) {
	t.Run("sorts by numeric version and reads descriptions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/010_late.sql":   {Data: []byte("CREATE TABLE late (id TEXT);")},
			"migrations/002_second.sql": {Data: []byte("-- Description: second step\nCREATE TABLE b (id TEXT);")},
			"migrations/001_first.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
			"migrations/README.md":      {Data: []byte("ignored")},
		}

		migrations, err := Scan(fsys, "migrations")
		if err != nil {
			t.Fatalf("Scan returned error: %v", err)
		}

		var versions []string
		for _, m := range migrations {
			versions = append(versions, m.Version)
		}
		if want := []string{"001", "002", "010"}; !reflect.DeepEqual(versions, want) {
			t.Fatalf("expected versions %v, got %v", want, versions)
		}
		if migrations[0].Description != "first" {
			t.Fatalf("expected filename description, got %q", migrations[0].Description)
		}
		if migrations[1].Description != "second step" {
			t.Fatalf("expected content description, got %q", migrations[1].Description)
		}
		if migrations[0].Checksum == "" {
			t.Fatalf("expected checksum to be computed")
		}
	})

	t.Run("rejects malformed names", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/initial.sql": {Data: []byte("SELECT 1;")}}
		if _, err := Scan(fsys, "migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/001_a.sql": {Data: []byte("SELECT 1;")},
			"migrations/001_b.sql": {Data: []byte("SELECT 2;")},
		}
		if _, err := Scan(fsys, "migrations"); !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects comment-only files", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/001_empty.sql": {Data: []byte("-- nothing here\n")}}
		if _, err := Scan(fsys, "migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	content := `-- header
CREATE TABLE a (
	id TEXT -- inline comments stay
);

-- trailing
CREATE INDEX idx_a ON a(id);
`
	got := splitStatements(content)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[1] != "CREATE INDEX idx_a ON a(id)" {
		t.Fatalf("unexpected second statement %q", got[1])
	}
}
