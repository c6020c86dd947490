package freshness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrStopped is returned by Watch after Stop.
var ErrStopped = errors.New("freshness: watcher stopped")

// FetchFunc loads the current value of key.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Update is one delivered fetch result. Seq increases strictly across the
// updates of a subscription.
type Update[T any] struct {
	Key       string
	Seq       uint64
	Value     T
	Err       error
	FetchedAt time.Time
}

// Watcher runs periodic fetches on a shared cron scheduler.
type Watcher[T any] struct {
	cron   *cron.Cron
	fetch  FetchFunc[T]
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	stopped bool
	subs    map[*subscription[T]]struct{}
}

// NewWatcher starts a watcher that loads values with fetch.
func NewWatcher[T any](fetch FetchFunc[T], logger *slog.Logger) *Watcher[T] {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "freshness")
	c := cron.New(cron.WithLogger(cronLogger{logger: logger}))
	c.Start()
	return &Watcher[T]{
		cron:   c,
		fetch:  fetch,
		logger: logger,
		now:    time.Now,
		subs:   make(map[*subscription[T]]struct{}),
	}
}

type subscription[T any] struct {
	watcher *Watcher[T]
	key     string
	deliver func(Update[T])
	ctx     context.Context
	cancel  context.CancelFunc
	entry   cron.EntryID

	mu     sync.Mutex
	issued uint64
	closed bool
	once   sync.Once

	deliverMu sync.Mutex
	delivered uint64
}

// Watch fetches key immediately and then every interval, passing each
// result to fn until ctx ends or the returned cancel func is called. A
// response older than one already delivered is dropped. Intervals below one
// second are rounded up to one second.
func (w *Watcher[T]) Watch(ctx context.Context, key string, interval time.Duration, fn func(Update[T])) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("freshness: nil delivery func")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("freshness: interval must be positive, got %s", interval)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription[T]{watcher: w, key: key, deliver: fn, ctx: subCtx, cancel: cancel}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		cancel()
		return nil, ErrStopped
	}
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: w.logger})).Then(cron.FuncJob(sub.poll))
	sub.entry = w.cron.Schedule(cron.Every(interval), job)
	w.subs[sub] = struct{}{}
	w.mu.Unlock()

	go sub.poll()
	go func() {
		<-subCtx.Done()
		sub.close()
	}()

	w.logger.Debug("watch started", "key", key, "interval", interval)
	return sub.close, nil
}

// poll runs one fetch and delivers it unless a newer result got there first.
func (s *subscription[T]) poll() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	value, err := s.watcher.fetch(s.ctx, s.key)

	// deliverMu orders deliveries; fn may call the cancel func, which only
	// takes mu.
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	if seq <= s.delivered {
		s.watcher.logger.Debug("dropped stale response", "key", s.key, "seq", seq, "delivered", s.delivered)
		return
	}
	s.delivered = seq
	s.deliver(Update[T]{Key: s.key, Seq: seq, Value: value, Err: err, FetchedAt: s.watcher.now()})
}

func (s *subscription[T]) close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()

		w := s.watcher
		w.mu.Lock()
		delete(w.subs, s)
		w.mu.Unlock()
		w.cron.Remove(s.entry)
	})
}

// Active reports the number of open subscriptions.
func (w *Watcher[T]) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Stop cancels every subscription and waits for running fetches to finish.
func (w *Watcher[T]) Stop() {
	w.mu.Lock()
	w.stopped = true
	subs := make([]*subscription[T], 0, len(w.subs))
	for sub := range w.subs {
		subs = append(subs, sub)
	}
	w.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	<-w.cron.Stop().Done()
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
