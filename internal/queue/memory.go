package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsAggregator/internal/ports"
)

// How long a claimed task may stay unresolved before it is treated as
// abandoned and becomes claimable again. Matches the durable queue.
const staleClaimAfter = 5 * time.Minute

type claim struct {
	task      ports.Task
	claimedAt time.Time
}

// MemoryQueue is an in-process ports.TaskQueue with the same at-least-once
// semantics as the durable one, including reclaim of tasks whose claimer
// never resolved them. It backs tests and ad hoc single-process runs.
type MemoryQueue struct {
	mu          sync.Mutex
	maxAttempts int
	staleAfter  time.Duration
	now         func() time.Time
	pending     []ports.Task
	running     map[uuid.UUID]claim
	dead        []ports.Task
}

var _ ports.TaskQueue = (*MemoryQueue)(nil)

// NewMemoryQueue builds an empty queue with the given retry budget.
func NewMemoryQueue(maxAttempts int) *MemoryQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &MemoryQueue{
		maxAttempts: maxAttempts,
		staleAfter:  staleClaimAfter,
		now:         time.Now,
		running:     map[uuid.UUID]claim{},
	}
}

// Enqueue appends a task, assigning an id and retry budget when absent.
func (q *MemoryQueue) Enqueue(_ context.Context, task ports.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.MaxAttempts < 1 {
		task.MaxAttempts = q.maxAttempts
	}
	q.pending = append(q.pending, task)
	return nil
}

// Dequeue pops the oldest pending task on one of the named queues, or
// reclaims a task whose claim went stale, or returns (nil, nil) when none
// is ready.
func (q *MemoryQueue) Dequeue(_ context.Context, queues []string) (*ports.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	wanted := map[string]struct{}{}
	for _, name := range queues {
		wanted[name] = struct{}{}
	}

	for i, task := range q.pending {
		if _, ok := wanted[task.Queue]; !ok {
			continue
		}
		task.Attempts++
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		q.running[task.ID] = claim{task: task, claimedAt: q.now()}
		return &task, nil
	}

	for id, c := range q.running {
		if _, ok := wanted[c.task.Queue]; !ok {
			continue
		}
		if q.now().Sub(c.claimedAt) < q.staleAfter {
			continue
		}
		task := c.task
		task.Attempts++
		q.running[id] = claim{task: task, claimedAt: q.now()}
		return &task, nil
	}

	return nil, nil
}

// Ack removes a completed task.
func (q *MemoryQueue) Ack(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.running, id)
	return nil
}

// Fail requeues a failed task, or dead-letters it once attempts are exhausted.
func (q *MemoryQueue) Fail(_ context.Context, id uuid.UUID, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.running[id]
	if !ok {
		return nil
	}
	delete(q.running, id)

	if c.task.Attempts >= c.task.MaxAttempts {
		q.dead = append(q.dead, c.task)
		return nil
	}
	q.pending = append(q.pending, c.task)
	return nil
}

// Pending returns a snapshot of queued tasks on the named queue.
func (q *MemoryQueue) Pending(queueName string) []ports.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var tasks []ports.Task
	for _, task := range q.pending {
		if task.Queue == queueName {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Dead returns a snapshot of dead-lettered tasks.
func (q *MemoryQueue) Dead() []ports.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]ports.Task(nil), q.dead...)
}

// Idle reports whether no task is queued or running.
func (q *MemoryQueue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending) == 0 && len(q.running) == 0
}
