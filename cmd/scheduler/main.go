package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/dates"
	"github.com/example/room-booking/internal/freshness"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/lease"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/postgres"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/scheduler"
	"github.com/example/room-booking/internal/slots"
)

const usage = `usage: room-booking [serve|migrate|token|watch] [flags]

  serve    run the HTTP API (default)
  migrate  apply store migrations and exit
  token    print a signed bearer token for --user
  watch    print the day view of --date every time it is refreshed
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	fs := config.NewFlagSet("room-booking " + command)
	fs.SetOutput(stderr)
	var tokenOpts tokenOptions
	var watchOpts watchOptions
	switch command {
	case "serve", "migrate":
	case "token":
		tokenOpts.register(fs)
	case "watch":
		watchOpts.register(fs)
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.LoadFlags(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	switch command {
	case "token":
		err = runToken(cfg, tokenOpts, stdout)
	case "migrate":
		err = runMigrate(ctx, cfg, logger)
	case "watch":
		err = runWatch(ctx, cfg, logger, watchOpts, stdout)
	default:
		err = runServe(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		return 1
	}
	return 0
}

// backend is the store every service shares.
type backend interface {
	application.ScheduleStore
	application.RequestStore
}

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	catalog  *slots.Catalog
	engine   *scheduler.Engine
	store    backend
	locker   lease.Locker
	services services
	closers  []func() error
}

type services struct {
	requests *application.RequestService
	reviews  *application.ReviewService
	views    *application.ViewService
	schedule *application.ScheduleService
}

// newApp opens the configured store and lease backend and builds the services.
// With migrate set, schema changes are applied before the services are built.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	dates.SetLocation(loc)

	catalog := slots.DefaultCatalog()
	if cfg.SlotCatalog != "" {
		if catalog, err = slots.LoadCatalog(cfg.SlotCatalog); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: logger, catalog: catalog, engine: scheduler.New(catalog)}
	if err := a.openStore(ctx, migrate); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openLocker(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.buildServices(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context, migrate bool) error {
	switch a.cfg.Store {
	case config.StoreMemory:
		a.store = memory.New(memory.WithSlotNormalizer(a.catalog.NormalizeForRoom))
	case config.StorePostgres:
		store, err := postgres.Open(ctx, a.cfg.PostgresURL, postgres.WithSlotNormalizer(a.catalog.NormalizeForRoom))
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if migrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("apply postgres schema: %w", err)
			}
		}
		a.store = store
	default:
		store, err := sqlite.Open(a.cfg.SQLiteDSN,
			sqlite.WithSlotNormalizer(a.catalog.NormalizeForRoom),
			sqlite.WithLogger(a.logger),
		)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if migrate {
			if err := store.Migrate(ctx); err != nil {
				return err
			}
		}
		a.store = store
	}
	a.logger.Info("store opened", "store", a.cfg.Store)
	return nil
}

func (a *app) openLocker(ctx context.Context) error {
	if a.cfg.RedisAddr == "" {
		a.locker = lease.NewLocal()
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr, Password: a.cfg.RedisPassword})
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis %s: %w", a.cfg.RedisAddr, err)
	}
	a.locker = lease.NewRedis(client, "room-booking:lease:", a.cfg.LeaseTTL)
	a.logger.Info("review leases shared through redis", "addr", a.cfg.RedisAddr)
	return nil
}

func (a *app) buildServices() error {
	confirmer, err := application.NewConfirmer([]byte(a.cfg.ConfirmSecret), a.cfg.ConfirmTTL)
	if err != nil {
		return err
	}
	reviews, err := application.NewReviewService(a.store, a.store, a.engine, application.ReviewServiceConfig{
		Locker:       a.locker,
		Confirmer:    confirmer,
		RevertPolicy: application.RevertPolicy(a.cfg.RevertPolicy),
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	a.services = services{
		requests: application.NewRequestService(a.store, a.store, a.engine, application.RequestServiceConfig{
			MaxWeeks: a.cfg.MaxWeeks,
			Logger:   a.logger,
		}),
		reviews:  reviews,
		views:    application.NewViewService(a.store, a.store, a.engine, a.logger),
		schedule: application.NewScheduleService(a.store, a.engine, a.logger),
	}
	return nil
}

func (a *app) policy() freshness.Policy {
	return freshness.Policy{
		RequestInterval:  a.cfg.RequestPollInterval,
		ScheduleInterval: a.cfg.SchedulePollInterval,
	}.Normalize()
}

func (a *app) router() (http.Handler, error) {
	verifier, err := httptransport.NewTokenVerifier([]byte(a.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}
	if a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	return httptransport.NewRouter(httptransport.RouterConfig{
		Requests: httptransport.NewRequestHandler(a.services.requests, a.logger),
		Reviews:  httptransport.NewReviewHandler(a.services.reviews, a.logger),
		Schedule: httptransport.NewScheduleHandler(a.services.views, a.services.schedule, a.logger),
		Meta:     httptransport.NewMetaHandler(a.catalog, a.policy(), a.logger),
		Verifier: verifier,
		Limiter:  httptransport.NewRateLimiter(a.cfg.RateLimitPerMinute),
		Logger:   a.logger,
	}), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	handler, err := a.router()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("room booking API listening", "addr", server.Addr, "revert_policy", cfg.RevertPolicy)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func runMigrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	a.close()
	logger.Info("store schema is current", "store", cfg.Store)
	return nil
}

type tokenOptions struct {
	user  *string
	name  *string
	admin *bool
	ttl   *time.Duration
}

func (o *tokenOptions) register(fs *pflag.FlagSet) {
	o.user = fs.String("user", "", "user ID placed in the sub claim")
	o.name = fs.String("name", "", "display name")
	o.admin = fs.Bool("admin", false, "grant the admin role")
	o.ttl = fs.Duration("ttl", 12*time.Hour, "token lifetime")
}

func runToken(cfg config.Config, opts tokenOptions, stdout io.Writer) error {
	if strings.TrimSpace(*opts.user) == "" {
		return errors.New("--user is required")
	}
	verifier, err := httptransport.NewTokenVerifier([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}
	token, err := verifier.Issue(application.Principal{
		UserID:      strings.TrimSpace(*opts.user),
		DisplayName: *opts.name,
		IsAdmin:     *opts.admin,
	}, *opts.ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

type watchOptions struct {
	date  *string
	rooms *[]string
	user  *string
	count *int
}

func (o *watchOptions) register(fs *pflag.FlagSet) {
	o.date = fs.String("date", "", "date to watch (YYYY-MM-DD), defaults to today")
	o.rooms = fs.StringSlice("rooms", nil, "rooms to include")
	o.user = fs.String("user", "", "viewer whose pending requests are flagged")
	o.count = fs.Int("count", 0, "stop after this many refreshes (0 runs until interrupted)")
}

// runWatch polls the day view on the schedule interval and prints each
// refresh as one JSON line.
func runWatch(ctx context.Context, cfg config.Config, logger *slog.Logger, opts watchOptions, stdout io.Writer) error {
	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.close()

	date := strings.TrimSpace(*opts.date)
	if date == "" {
		date = dates.Today(time.Now())
	}
	principal := application.Principal{UserID: *opts.user}
	rooms := *opts.rooms

	watcher := freshness.NewWatcher[application.DayView](func(ctx context.Context, key string) (application.DayView, error) {
		return a.services.views.Day(ctx, application.DayViewParams{Principal: principal, Date: key, Rooms: rooms})
	}, logger)
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	encoder := json.NewEncoder(stdout)
	var (
		mu       sync.Mutex
		seen     int
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}
	stopWatch, err := watcher.Watch(ctx, date, a.policy().ScheduleInterval, func(update freshness.Update[application.DayView]) {
		if update.Err != nil {
			logger.Warn("day view refresh failed", "date", update.Key, "error", update.Err)
			var vErr *application.ValidationError
			if errors.As(update.Err, &vErr) {
				fail(update.Err)
			}
			return
		}
		if err := encoder.Encode(watchLine{
			Date:      update.Key,
			Seq:       update.Seq,
			FetchedAt: update.FetchedAt.UTC().Format(time.RFC3339),
			Grid:      update.Value.Grid,
			Blocked:   update.Value.Blocked,
		}); err != nil {
			fail(err)
			return
		}
		seen++
		if *opts.count > 0 && seen >= *opts.count {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	defer stopWatch()

	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	return firstErr
}

type watchLine struct {
	Date      string            `json:"date"`
	Seq       uint64            `json:"seq"`
	FetchedAt string            `json:"fetched_at"`
	Grid      scheduler.DayGrid `json:"grid"`
	Blocked   []scheduler.Cell  `json:"blocked,omitempty"`
}
