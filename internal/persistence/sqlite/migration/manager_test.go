package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestManagerRun(t *testing.T) {
	ctx := context.Background()
	db, err := Open(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"migrations/001_rooms.sql": {Data: []byte("CREATE TABLE rooms (code TEXT PRIMARY KEY);")},
		"migrations/002_seed.sql":  {Data: []byte("INSERT INTO rooms (code) VALUES ('301');\nINSERT INTO rooms (code) VALUES ('302');")},
	}
	manager := NewManager(NewExecutor(db), fsys, "migrations", nil)

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rooms").Scan(&count); err != nil {
		t.Fatalf("count rooms: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 seeded rooms, got %d", count)
	}

	again, err := manager.Run(ctx)
	if err != nil || again != 0 {
		t.Fatalf("expected second run to be a no-op, got %d (%v)", again, err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Pending) != 0 {
		t.Fatalf("unexpected status %+v", status)
	}

	t.Run("changed applied file is detected", func(t *testing.T) {
		changed := fstest.MapFS{
			"migrations/001_rooms.sql": {Data: []byte("CREATE TABLE rooms (code TEXT PRIMARY KEY, name TEXT);")},
			"migrations/002_seed.sql":  fsys["migrations/002_seed.sql"],
		}
		_, err := NewManager(NewExecutor(db), changed, "migrations", nil).Run(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("failing migration is rolled back", func(t *testing.T) {
		broken := fstest.MapFS{
			"migrations/001_rooms.sql":  fsys["migrations/001_rooms.sql"],
			"migrations/002_seed.sql":   fsys["migrations/002_seed.sql"],
			"migrations/003_broken.sql": {Data: []byte("CREATE TABLE extra (id TEXT);\nINSERT INTO missing_table VALUES (1);")},
		}
		_, err := NewManager(NewExecutor(db), broken, "migrations", nil).Run(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
		var name string
		err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='extra'").Scan(&name)
		if err == nil {
			t.Fatalf("expected table from failed migration to be rolled back")
		}
	})
}

func TestSQLiteConfigValidate(t *testing.T) {
	cases := map[string]SQLiteConfig{
		"empty dsn":    {},
		"journal mode": {DSN: "x.db", JournalMode: "FAST"},
		"sync mode":    {DSN: "x.db", Synchronous: "SOMETIMES"},
		"negative":     {DSN: "x.db", MaxOpenConns: -1},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := DefaultSQLiteConfig("scheduler.db").Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
}
