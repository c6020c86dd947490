package testfixtures

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/lease"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/scheduler"
	"github.com/example/room-booking/internal/slots"
)

// ServiceFactory assists tests with constructing application services backed
// by an in-memory store, deterministic identifiers and a controllable clock.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Catalog     *slots.Catalog
	Store       *memory.Storage
	Locker      lease.Locker
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("req"),
		Catalog:     slots.DefaultCatalog(),
		Locker:      lease.NewLocal(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("req")
	}
	if factory.Catalog == nil {
		factory.Catalog = slots.DefaultCatalog()
	}
	if factory.Store == nil {
		factory.Store = memory.New(
			memory.WithSlotNormalizer(factory.Catalog.NormalizeForRoom),
			memory.WithNow(factory.Clock.NowFunc()),
		)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithCatalog overrides the slot catalog.
func WithCatalog(catalog *slots.Catalog) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Catalog = catalog
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Engine returns a scheduler engine over the factory catalog.
func (f *ServiceFactory) Engine() *scheduler.Engine {
	return scheduler.New(f.Catalog)
}

// Services bundles every application service over one store.
type Services struct {
	Requests *application.RequestService
	Reviews  *application.ReviewService
	Views    *application.ViewService
	Schedule *application.ScheduleService
}

// NewServices builds all services over the factory store.
func (f *ServiceFactory) NewServices(tb testing.TB) Services {
	tb.Helper()
	engine := f.Engine()

	confirmer, err := application.NewConfirmer([]byte("test-confirm-secret"), time.Minute)
	if err != nil {
		tb.Fatalf("failed to build confirmer: %v", err)
	}
	reviews, err := application.NewReviewService(f.Store, f.Store, engine, application.ReviewServiceConfig{
		Locker:    f.Locker,
		Confirmer: confirmer,
		Logger:    f.Logger,
		Now:       f.Clock.NowFunc(),
	})
	if err != nil {
		tb.Fatalf("failed to build review service: %v", err)
	}

	return Services{
		Requests: application.NewRequestService(f.Store, f.Store, engine, application.RequestServiceConfig{
			IDGenerator: f.IDGenerator.NextFunc(),
			Now:         f.Clock.NowFunc(),
			Logger:      f.Logger,
		}),
		Reviews:  reviews,
		Views:    application.NewViewService(f.Store, f.Store, engine, f.Logger),
		Schedule: application.NewScheduleService(f.Store, engine, f.Logger),
	}
}

// SeedRequests stores requests directly, bypassing submission checks.
func (f *ServiceFactory) SeedRequests(tb testing.TB, requests ...persistence.RoomRequest) {
	tb.Helper()
	for _, req := range requests {
		if err := f.Store.CreateRequest(context.Background(), req); err != nil {
			tb.Fatalf("failed to seed request %s: %v", req.ID, err)
		}
	}
}

// SeedEntries stores confirmed cells directly.
func (f *ServiceFactory) SeedEntries(tb testing.TB, entries ...persistence.ScheduleEntry) {
	tb.Helper()
	for _, entry := range entries {
		if err := f.Store.UpsertEntry(context.Background(), entry); err != nil {
			tb.Fatalf("failed to seed entry %s/%s/%s: %v", entry.ScheduleDate, entry.RoomCode, entry.SlotHour, err)
		}
	}
}
