package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"NewsAggregator/internal/ports"
)

// How long a claimed job may sit in 'running' before it is considered
// abandoned by a dead worker and becomes claimable again.
const staleClaimAfter = 5 * time.Minute

// PostgresQueue is the durable task queue backed by the queue_jobs table.
// Dequeue claims jobs with FOR UPDATE SKIP LOCKED, so competing workers
// never double-claim. A job claimed by a worker that died before Ack or
// Fail keeps status 'running' with a stale locked_at; Dequeue reclaims such
// jobs after staleClaimAfter, giving at-least-once delivery across crashes.
type PostgresQueue struct {
	db          *sql.DB
	maxAttempts int
	staleAfter  time.Duration
	now         func() time.Time
}

var _ ports.TaskQueue = (*PostgresQueue)(nil)

// NewPostgresQueue wires a sql.DB implementation with a default retry budget.
func NewPostgresQueue(db *sql.DB, maxAttempts int) *PostgresQueue {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &PostgresQueue{
		db:          db,
		maxAttempts: maxAttempts,
		staleAfter:  staleClaimAfter,
		now:         time.Now,
	}
}

// Enqueue persists a task, assigning an id and retry budget when absent.
func (q *PostgresQueue) Enqueue(ctx context.Context, task ports.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.MaxAttempts < 1 {
		task.MaxAttempts = q.maxAttempts
	}

	query, args, err := psql.Insert("queue_jobs").
		Columns("id", "queue", "kind", "payload", "attempts", "max_attempts", "status", "run_at").
		Values(task.ID, task.Queue, task.Kind, task.Payload, 0, task.MaxAttempts, "pending", q.now()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

const dequeueQuery = `
UPDATE queue_jobs
SET status = 'running', attempts = attempts + 1, locked_at = NOW()
WHERE id = (
    SELECT id FROM queue_jobs
    WHERE queue = ANY($1) AND run_at <= NOW()
      AND (status = 'pending'
           OR (status = 'running' AND locked_at < NOW() - make_interval(secs => $2)))
    ORDER BY run_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING id, queue, kind, payload, attempts, max_attempts`

// Dequeue claims the oldest ready job on one of the named queues, or
// returns (nil, nil) when none is ready. Jobs stranded in 'running' by a
// crashed worker count as ready once their lock is older than staleAfter.
func (q *PostgresQueue) Dequeue(ctx context.Context, queues []string) (*ports.Task, error) {
	var task ports.Task
	err := q.db.QueryRowContext(ctx, dequeueQuery, pq.Array(queues), q.staleAfter.Seconds()).Scan(
		&task.ID, &task.Queue, &task.Kind, &task.Payload,
		&task.Attempts, &task.MaxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue task: %w", err)
	}
	return &task, nil
}

// Ack removes a completed job.
func (q *PostgresQueue) Ack(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Delete("queue_jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return nil
}

// Jobs are rescheduled with 15s * 2^(n-1) backoff until attempts are
// exhausted, then parked as dead for operator inspection.
const failQuery = `
UPDATE queue_jobs
SET status = CASE WHEN attempts >= max_attempts THEN 'dead' ELSE 'pending' END,
    run_at = NOW() + (INTERVAL '15 seconds' * POWER(2, GREATEST(attempts - 1, 0))),
    last_error = $2,
    locked_at = NULL
WHERE id = $1`

// Fail records a handler error and reschedules or dead-letters the job.
func (q *PostgresQueue) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	if _, err := q.db.ExecContext(ctx, failQuery, id, reason); err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	return nil
}
