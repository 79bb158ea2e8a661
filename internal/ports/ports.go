package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"NewsAggregator/internal/domain"
)

// ErrDuplicateArticle reports an insert that collided with an existing
// (source_id, source_article_id) pair. Callers treat it as the idempotent
// "already exists" outcome, never as a failure.
var ErrDuplicateArticle = errors.New("article already exists")

// Fetcher retrieves and normalizes articles for one configured source.
// Implementations absorb provider-level failures (missing credential,
// exhausted retries, empty feeds) and return an empty slice; only
// unexpected processing faults surface as errors.
type Fetcher interface {
	FetchArticles(ctx context.Context) ([]domain.NormalizedArticle, error)
	SourceSlug() string
}

// FetcherFactory resolves a source's provider slug to a fetcher. A nil
// result means the slug is unknown; callers handle it explicitly.
type FetcherFactory interface {
	Create(source domain.Source) Fetcher
}

// Store is the persistence boundary shared by the pipeline jobs. Find
// methods return (nil, nil) when nothing matches. FindOrCreate methods are
// race-safe: concurrent callers with the same key all observe the same row,
// and the first-created display name wins.
type Store interface {
	ListActiveSources(ctx context.Context, slugFilter string) ([]domain.Source, error)
	FindOrCreateSource(ctx context.Context, source domain.Source) (domain.Source, error)

	FindArticleBySourceAndExternalID(ctx context.Context, sourceID int64, externalID string) (*domain.Article, error)
	CreateArticle(ctx context.Context, article domain.Article) (domain.Article, error)

	FindOrCreateAuthor(ctx context.Context, canonicalName, name string) (domain.Author, error)
	FindOrCreateCategory(ctx context.Context, slug, name string) (domain.Category, error)

	// Transact runs fn against a transactional view of the store. An error
	// from fn rolls back every write made inside it.
	Transact(ctx context.Context, fn func(Store) error) error
}

// Task is one durable unit of work. Payload is the JSON encoding of a
// domain task type selected by Kind.
type Task struct {
	ID          uuid.UUID
	Queue       string
	Kind        string
	Payload     []byte
	Attempts    int
	MaxAttempts int
}

// TaskQueue is a durable at-least-once work queue. Dequeue returns
// (nil, nil) when no task is ready. A dequeued task must be resolved with
// Ack on success or Fail on handler error; Fail reschedules with backoff
// until attempts are exhausted, then dead-letters the task.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context, queues []string) (*Task, error)
	Ack(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error
}

// Scheduler controls when the periodic trigger executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
