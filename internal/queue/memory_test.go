package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"NewsAggregator/internal/ports"
)

func TestMemoryQueueAckRemovesTask(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)
	ctx := context.Background()

	if err := q.Enqueue(ctx, ports.Task{Queue: QueueFetchArticles, Kind: KindFetchSource}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	task, err := q.Dequeue(ctx, []string{QueueFetchArticles})
	if err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	if task == nil {
		t.Fatal("expected a task")
	}
	if task.ID == uuid.Nil {
		t.Fatal("enqueue must assign an id")
	}
	if task.Attempts != 1 {
		t.Fatalf("expected attempt 1, got %d", task.Attempts)
	}

	if err := q.Ack(ctx, task.ID); err != nil {
		t.Fatalf("Ack error: %v", err)
	}
	if !q.Idle() {
		t.Fatal("queue must be idle after ack")
	}
}

func TestMemoryQueueDequeueFiltersByQueueName(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)
	ctx := context.Background()

	if err := q.Enqueue(ctx, ports.Task{Queue: QueueProcessArticles, Kind: KindProcessArticle}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	task, err := q.Dequeue(ctx, []string{QueueFetchArticles})
	if err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	if task != nil {
		t.Fatalf("expected no task on that queue, got %+v", task)
	}

	task, err = q.Dequeue(ctx, []string{QueueFetchArticles, QueueProcessArticles})
	if err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	if task == nil {
		t.Fatal("expected the task on the second queue")
	}
}

func TestMemoryQueueFailReschedulesUntilDead(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)
	ctx := context.Background()

	if err := q.Enqueue(ctx, ports.Task{Queue: QueueProcessArticles, Kind: KindProcessArticle}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		task, err := q.Dequeue(ctx, []string{QueueProcessArticles})
		if err != nil {
			t.Fatalf("Dequeue error: %v", err)
		}
		if task == nil {
			t.Fatalf("expected a task on attempt %d", attempt)
		}
		if task.Attempts != attempt {
			t.Fatalf("expected attempt %d, got %d", attempt, task.Attempts)
		}
		if err := q.Fail(ctx, task.ID, "handler failed"); err != nil {
			t.Fatalf("Fail error: %v", err)
		}
	}

	if task, _ := q.Dequeue(ctx, []string{QueueProcessArticles}); task != nil {
		t.Fatalf("exhausted task must not be redelivered, got %+v", task)
	}
	if dead := q.Dead(); len(dead) != 1 || dead[0].Attempts != 3 {
		t.Fatalf("unexpected dead letters: %+v", dead)
	}
}

func TestMemoryQueueReclaimsAbandonedClaims(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)
	ctx := context.Background()

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	if err := q.Enqueue(ctx, ports.Task{Queue: QueueProcessArticles, Kind: KindProcessArticle}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	claimed, err := q.Dequeue(ctx, []string{QueueProcessArticles})
	if err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a task")
	}

	// The claiming worker dies without Ack or Fail. Before the claim goes
	// stale the task must stay invisible.
	now = now.Add(q.staleAfter - time.Second)
	if task, _ := q.Dequeue(ctx, []string{QueueProcessArticles}); task != nil {
		t.Fatalf("fresh claim must not be redelivered, got %+v", task)
	}

	now = now.Add(2 * time.Second)
	reclaimed, err := q.Dequeue(ctx, []string{QueueProcessArticles})
	if err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	if reclaimed == nil {
		t.Fatal("stale claim must be redelivered")
	}
	if reclaimed.ID != claimed.ID {
		t.Fatalf("expected the same task back, got %s want %s", reclaimed.ID, claimed.ID)
	}
	if reclaimed.Attempts != 2 {
		t.Fatalf("reclaim must count as an attempt, got %d", reclaimed.Attempts)
	}

	if err := q.Ack(ctx, reclaimed.ID); err != nil {
		t.Fatalf("Ack error: %v", err)
	}
	if !q.Idle() {
		t.Fatal("queue must be idle after ack")
	}
}

func TestMemoryQueueEmptyDequeueReturnsNil(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(3)

	task, err := q.Dequeue(context.Background(), []string{QueueFetchArticles})
	if err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task, got %+v", task)
	}
}
