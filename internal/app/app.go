package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"NewsAggregator/internal/config"
	"NewsAggregator/internal/fetcher"
	"NewsAggregator/internal/infrastructure/scheduler"
	"NewsAggregator/internal/infrastructure/storage"
	"NewsAggregator/internal/ingest"
	"NewsAggregator/internal/logging"
	"NewsAggregator/internal/ports"
	"NewsAggregator/internal/queue"
)

// Application wires configs to pipeline components and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	store   ports.Store
	trigger *ingest.Trigger
	worker  *queue.Worker
	sched   ports.Scheduler
}

// New opens the database, applies the schema, and wires every component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := storage.NewPostgresStore(db)
	taskQueue := storage.NewPostgresQueue(db, cfg.Queue.MaxAttempts)

	client := fetcher.NewClient(cfg.Providers.RequestTimeout.Std(),
		baseLogger.With("component", "fetcher.client"))
	factory := fetcher.NewFactory(cfg.Providers, client,
		baseLogger.With("component", "fetcher.factory"))

	dispatcher := ingest.NewDispatcher(factory, taskQueue,
		baseLogger.With("component", "dispatcher"))
	persister := ingest.NewPersister(store,
		baseLogger.With("component", "persister"))

	worker := queue.NewWorker(taskQueue,
		[]string{queue.QueueFetchArticles, queue.QueueProcessArticles},
		cfg.Queue.Workers, cfg.Queue.PollInterval.Std(),
		baseLogger.With("component", "queue.worker"))
	worker.Register(queue.KindFetchSource, dispatcher.HandleTask)
	worker.Register(queue.KindProcessArticle, persister.HandleTask)

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		store:  store,
		trigger: ingest.NewTrigger(store, taskQueue,
			baseLogger.With("component", "trigger")),
		worker: worker,
		sched:  scheduler.NewTickerScheduler(cfg.Scheduler.Interval.Std()),
	}, nil
}

// RunWorker starts the periodic trigger and blocks processing queue jobs
// until ctx is cancelled.
func (a *Application) RunWorker(ctx context.Context) error {
	job := func(tick time.Time) {
		if _, err := a.trigger.Run(ctx, ""); err != nil {
			a.logger.Error("scheduled fetch trigger failed", "tick", tick, "error", err)
		}
	}
	if err := a.sched.Start(ctx, job); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		_ = a.sched.Stop(context.Background())
	}()

	return a.worker.Run(ctx)
}

// RunFetch triggers one fetch cycle, optionally filtered to a provider slug.
func (a *Application) RunFetch(ctx context.Context, slugFilter string) (ingest.Summary, error) {
	return a.trigger.Run(ctx, slugFilter)
}

// RunSeed provisions the default categories and provider sources.
func (a *Application) RunSeed(ctx context.Context) error {
	return Seed(ctx, a.store, a.logger.With("component", "seed"))
}

// Close releases the database handle.
func (a *Application) Close() error {
	return a.db.Close()
}
