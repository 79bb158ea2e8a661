package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"NewsAggregator/internal/ports"
)

// Handler executes one dequeued task. A non-nil error sends the task back to
// the queue for retry or dead-lettering.
type Handler func(ctx context.Context, task ports.Task) error

// Worker polls the durable queue and runs registered handlers. Tasks are
// delivered at least once; handlers must be idempotent.
type Worker struct {
	queue        ports.TaskQueue
	queues       []string
	handlers     map[string]Handler
	concurrency  int
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewWorker builds a worker polling the named queues.
func NewWorker(q ports.TaskQueue, queues []string, concurrency int, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		queue:        q,
		queues:       queues,
		handlers:     map[string]Handler{},
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Register binds a handler to a task kind.
func (w *Worker) Register(kind string, handler Handler) {
	w.handlers[kind] = handler
}

// Run spawns the worker goroutines and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
	return nil
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.queue.Dequeue(ctx, w.queues)
		if err != nil {
			w.logger.Error("dequeue failed", "worker", id, "error", err)
			w.sleep(ctx)
			continue
		}
		if task == nil {
			w.sleep(ctx)
			continue
		}

		w.process(ctx, *task)
	}
}

func (w *Worker) process(ctx context.Context, task ports.Task) {
	handler, ok := w.handlers[task.Kind]
	if !ok {
		w.logger.Error("no handler for task kind", "kind", task.Kind, "id", task.ID)
		if err := w.queue.Fail(ctx, task.ID, "no handler for kind "+task.Kind); err != nil {
			w.logger.Error("fail task", "id", task.ID, "error", err)
		}
		return
	}

	if err := handler(ctx, task); err != nil {
		w.logger.Error("task failed",
			"kind", task.Kind,
			"id", task.ID,
			"attempt", task.Attempts,
			"error", err)
		if failErr := w.queue.Fail(ctx, task.ID, err.Error()); failErr != nil {
			w.logger.Error("fail task", "id", task.ID, "error", failErr)
		}
		return
	}

	if err := w.queue.Ack(ctx, task.ID); err != nil {
		w.logger.Warn("ack task", "id", task.ID, "error", err)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
