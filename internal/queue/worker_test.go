package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"NewsAggregator/internal/logging"
	"NewsAggregator/internal/ports"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWorkerAcksSuccessfulTask(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int32
	w := NewWorker(q, []string{QueueProcessArticles}, 2, time.Millisecond, logging.New("error"))
	w.Register(KindProcessArticle, func(context.Context, ports.Task) error {
		handled.Add(1)
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, ports.Task{Queue: QueueProcessArticles, Kind: KindProcessArticle}); err != nil {
			t.Fatalf("Enqueue error: %v", err)
		}
	}

	waitFor(t, func() bool { return handled.Load() == 5 && q.Idle() })

	cancel()
	<-done
}

func TestWorkerRetriesUntilDeadLetter(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	w := NewWorker(q, []string{QueueProcessArticles}, 1, time.Millisecond, logging.New("error"))
	w.Register(KindProcessArticle, func(context.Context, ports.Task) error {
		attempts.Add(1)
		return errors.New("handler failed")
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	if err := q.Enqueue(ctx, ports.Task{Queue: QueueProcessArticles, Kind: KindProcessArticle}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	waitFor(t, func() bool { return len(q.Dead()) == 1 })

	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts before dead-lettering, got %d", got)
	}

	cancel()
	<-done
}

func TestWorkerFailsTaskWithoutHandler(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorker(q, []string{QueueFetchArticles}, 1, time.Millisecond, logging.New("error"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	if err := q.Enqueue(ctx, ports.Task{Queue: QueueFetchArticles, Kind: "unknown_kind"}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	waitFor(t, func() bool { return len(q.Dead()) == 1 })

	cancel()
	<-done
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWorker(q, []string{QueueFetchArticles}, 2, time.Millisecond, logging.New("error"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
