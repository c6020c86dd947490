// Package sqlite stores schedule entries and room requests in SQLite using
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements persistence.ScheduleStore and persistence.RequestStore.
type Store struct {
	pool      *ConnectionPool
	retry     RetryConfig
	normalize persistence.SlotNormalizer
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSlotNormalizer maps slot identifier variants onto canonical identifiers
// on every read and write.
func WithSlotNormalizer(fn persistence.SlotNormalizer) Option {
	return func(s *Store) {
		if fn != nil {
			s.normalize = fn
		}
	}
}

// WithLogger sets the logger used for migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetryConfig overrides the locked-database retry policy.
func WithRetryConfig(config RetryConfig) Option {
	return func(s *Store) {
		s.retry = config
	}
}

// Open opens the database at dsn with production settings.
func Open(dsn string, opts ...Option) (*Store, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn), opts...)
}

// OpenWithConfig opens a database with explicit connection settings.
func OpenWithConfig(config migration.SQLiteConfig, opts ...Option) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	s := &Store{
		pool:      pool,
		retry:     DefaultRetryConfig(),
		normalize: persistence.TrimSlot,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewManager(migration.NewExecutor(s.pool.DB()), migrationFiles, "migrations", s.logger)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.pool.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Parse(time.RFC3339Nano, value)
	}
	return t, nil
}
