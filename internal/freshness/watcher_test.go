package freshness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()
	if policy.RequestInterval != 5*time.Second || policy.ScheduleInterval != 15*time.Second {
		t.Fatalf("unexpected default policy %+v", policy)
	}
	normalized := Policy{RequestInterval: 2 * time.Second}.Normalize()
	if normalized.RequestInterval != 2*time.Second || normalized.ScheduleInterval != 15*time.Second {
		t.Fatalf("unexpected normalized policy %+v", normalized)
	}
}

func TestWatchFetchesImmediatelyAndStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	w := NewWatcher(func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return "grid:" + key, nil
	}, discardLogger())
	defer w.Stop()

	updates := make(chan Update[string], 8)
	cancel, err := w.Watch(context.Background(), "2025-03-03", time.Second, func(u Update[string]) {
		updates <- u
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case u := <-updates:
		if u.Value != "grid:2025-03-03" || u.Seq != 1 || u.Err != nil {
			t.Fatalf("unexpected first update %+v", u)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected an immediate fetch")
	}

	select {
	case u := <-updates:
		if u.Seq <= 1 {
			t.Fatalf("expected increasing sequence, got %d", u.Seq)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("expected a scheduled fetch")
	}

	if w.Active() != 1 {
		t.Fatalf("expected one active subscription, got %d", w.Active())
	}
	cancel()
	cancel()
	if w.Active() != 0 {
		t.Fatalf("expected subscription removed, got %d", w.Active())
	}

	settled := calls.Load()
	time.Sleep(1500 * time.Millisecond)
	if got := calls.Load(); got > settled+1 {
		t.Fatalf("expected polling to stop after cancel, calls went from %d to %d", settled, got)
	}
}

func TestWatchEndsWithContext(t *testing.T) {
	w := NewWatcher(func(ctx context.Context, key string) (int, error) { return 1, nil }, discardLogger())
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := w.Watch(ctx, "k", time.Second, func(Update[int]) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for w.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected subscription to close with its context")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPollDropsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	w := NewWatcher(func(ctx context.Context, key string) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
		}
		return int(n), nil
	}, discardLogger())
	defer w.Stop()

	var mu sync.Mutex
	var delivered []Update[int]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := &subscription[int]{watcher: w, key: "k", ctx: ctx, cancel: cancel, deliver: func(u Update[int]) {
		mu.Lock()
		delivered = append(delivered, u)
		mu.Unlock()
	}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sub.poll()
	}()
	<-started
	sub.poll()
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("expected the slow response to be dropped, got %d deliveries", len(delivered))
	}
	if delivered[0].Seq != 2 || delivered[0].Value != 2 {
		t.Fatalf("expected the newer response, got %+v", delivered[0])
	}
}

func TestWatchDeliversErrors(t *testing.T) {
	boom := errors.New("store down")
	w := NewWatcher(func(ctx context.Context, key string) (int, error) { return 0, boom }, discardLogger())
	defer w.Stop()

	updates := make(chan Update[int], 1)
	cancel, err := w.Watch(context.Background(), "k", time.Second, func(u Update[int]) {
		select {
		case updates <- u:
		default:
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	select {
	case u := <-updates:
		if !errors.Is(u.Err, boom) {
			t.Fatalf("expected fetch error to be delivered, got %v", u.Err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an update")
	}
}

func TestWatchValidatesArguments(t *testing.T) {
	w := NewWatcher(func(ctx context.Context, key string) (int, error) { return 0, nil }, discardLogger())
	if _, err := w.Watch(context.Background(), "k", 0, func(Update[int]) {}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := w.Watch(context.Background(), "k", time.Second, nil); err == nil {
		t.Fatalf("expected error for nil delivery func")
	}
	w.Stop()
	if _, err := w.Watch(context.Background(), "k", time.Second, func(Update[int]) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
