package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager applies pending migrations from a file system in version order.
type Manager struct {
	executor *Executor
	fsys     fs.FS
	dir      string
	logger   *slog.Logger
}

// NewManager creates a manager reading migrations from dir of fsys.
func NewManager(executor *Executor, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		executor: executor,
		fsys:     fsys,
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
}

// Run applies every pending migration and returns how many were applied.
// An applied migration whose file content changed fails the run with
// ErrChecksumMismatch before anything new is applied.
func (m *Manager) Run(ctx context.Context) (int, error) {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Info("schema version", "current_version", status.CurrentVersion, "pending", len(status.Pending))

	for i, migration := range status.Pending {
		m.logger.Info("applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.Pending)),
		)
		if err := m.executor.Apply(ctx, migration); err != nil {
			m.logger.Error("migration failed", "version", migration.Version, "error", err)
			return i, NewMigrationError(migration.Version, migration.Name, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	if len(status.Pending) > 0 {
		m.logger.Info("migrations complete", "applied", len(status.Pending), "duration", time.Since(started))
	}
	return len(status.Pending), nil
}

// Status compares the migration files with the recorded versions.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := Scan(m.fsys, m.dir)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	checksums := make(map[string]string, len(applied))
	for _, a := range applied {
		checksums[a.Version] = a.Checksum
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	for _, migration := range available {
		recorded, ok := checksums[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if recorded != "" && recorded != migration.Checksum {
			return Status{}, NewMigrationError(migration.Version, migration.Name, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}
